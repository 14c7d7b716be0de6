// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "fmt"

// thisParam is the implicit receiver every instance method body can
// reference; it is never declared in source.
const thisParam = "this"

// Converter lowers parsed AST into TAC (spec §4.3).
type Converter struct {
	classes *ClassRegistry
	esr     *ExternSignatureRegistry
	// topConsts holds the program-level top-level const Variables,
	// consulted by resolveIdent only for names that aren't also a class
	// property — "properties first, then top-level consts not already in
	// scope" (spec §4.6 step 3).
	topConsts map[string]*Variable
}

// NewConverter builds a converter over classes, resolving property and
// static-call signatures through esr during lowering.
func NewConverter(classes *ClassRegistry, esr *ExternSignatureRegistry) *Converter {
	return &Converter{classes: classes, esr: esr}
}

// SetTopLevelConsts installs the program's merged top-level const
// variables for unqualified-identifier resolution (spec §4.6 step 3).
func (conv *Converter) SetTopLevelConsts(vars map[string]*Variable) {
	conv.topConsts = vars
}

// PrepareClass synthesizes a parameterless constructor when cls
// declares none, so every class converts to a Func for its ctor (spec
// §4.3: "synthesize parameterless ctor if absent").
func PrepareClass(cls *ClassDecl) {
	if cls.Ctor == nil {
		cls.Ctor = &ConstructorDecl{Pos: cls.Pos}
	}
}

// entryMethodNames are the UdonSharp event names lowering treats as a
// class's entry method (spec §4.3: "entry method (Start or _start)
// first, then remaining methods in source order").
var entryMethodNames = map[string]bool{"Start": true, "_start": true}

// orderedMethods returns cls.Methods with its entry method, if
// declared, moved to the front; every other method keeps source order.
func orderedMethods(cls *ClassDecl) []*MethodDecl {
	out := make([]*MethodDecl, 0, len(cls.Methods))
	var entry *MethodDecl
	for i := range cls.Methods {
		m := &cls.Methods[i]
		if entry == nil && entryMethodNames[m.Name] {
			entry = m
			continue
		}
		out = append(out, m)
	}
	if entry != nil {
		out = append([]*MethodDecl{entry}, out...)
	}
	return out
}

// fnBuilder threads per-function state (temp/label allocation, local
// variable scope) through statement/expression lowering.
type fnBuilder struct {
	conv    *Converter
	fn      *Func
	locals  map[string]*Variable
	labelN  int
	ownerCD *ClassDecl
}

func (b *fnBuilder) emit(instr Instr) { b.fn.Instrs = append(b.fn.Instrs, instr) }

func (b *fnBuilder) newTemp(t string) *Temporary {
	return &Temporary{ID: b.fn.NextTempID(), Type: t}
}

func (b *fnBuilder) newLabel(prefix string) *Label {
	b.labelN++
	return &Label{Name: fmt.Sprintf("%s_%d", prefix, b.labelN)}
}

func (b *fnBuilder) thisOperand() Operand {
	return &Variable{Name: thisParam, Type: b.ownerCD.Name, IsParameter: true}
}

// resolveIdent returns the operand an Ident refers to: a declared
// local/parameter if one is in scope, otherwise an implicit
// this.Property read (spec §4.3: unqualified names resolve to the
// innermost declared local, falling back to a class member).
func (b *fnBuilder) resolveIdent(id *Ident) Operand {
	if v, ok := b.locals[id.Name]; ok {
		return v
	}
	if b.ownerCD == nil {
		// Top-level const initializer referencing another top-level
		// const: resolves directly to that Variable, never to "this".
		return &Variable{Name: id.Name, IsLocal: true, IsExported: true}
	}
	if !b.isOwnerProperty(id.Name) {
		if v, ok := b.conv.topConsts[id.Name]; ok {
			return v
		}
	}
	t := b.newTemp("")
	b.emit(&PropertyGet{Dest: t, Object: b.thisOperand(), Property: id.Name})
	return t
}

// isOwnerProperty reports whether name is a property somewhere in
// ownerCD's merged (inheritance-flattened) view, so a same-named
// top-level const never shadows a class property (spec §4.6 step 3:
// "properties first, then top-level consts not already in scope").
func (b *fnBuilder) isOwnerProperty(name string) bool {
	for _, p := range b.conv.classes.Merged(b.ownerCD).Properties {
		if p.Name == name {
			return true
		}
	}
	return false
}

// ConvertMethod lowers one method body into a Func. owner is the
// declaring class.
func (conv *Converter) ConvertMethod(owner *ClassDecl, m *MethodDecl) *Func {
	fn := &Func{OwnerClass: owner.Name, Name: m.Name}
	b := &fnBuilder{conv: conv, fn: fn, locals: map[string]*Variable{}, ownerCD: owner}
	for _, p := range m.Params {
		b.locals[p.Name] = &Variable{Name: p.Name, Type: p.TypeName, IsParameter: true}
	}
	b.lowerStmts(m.Body)
	if _, ok := lastNonLabel(fn.Instrs); !ok {
		fn.Instrs = append(fn.Instrs, &Return{})
	}
	return fn
}

// ConvertConstructor lowers owner's constructor (synthesized or
// declared) into a Func named "ctor".
func (conv *Converter) ConvertConstructor(owner *ClassDecl) *Func {
	fn := &Func{OwnerClass: owner.Name, Name: "ctor"}
	b := &fnBuilder{conv: conv, fn: fn, locals: map[string]*Variable{}, ownerCD: owner}
	for _, p := range owner.Ctor.Params {
		b.locals[p.Name] = &Variable{Name: p.Name, Type: p.TypeName, IsParameter: true}
	}
	b.lowerStmts(owner.Ctor.Body)
	fn.Instrs = append(fn.Instrs, &Return{})
	return fn
}

func lastNonLabel(instrs []Instr) (Instr, bool) {
	for i := len(instrs) - 1; i >= 0; i-- {
		if _, ok := instrs[i].(*LabelInstr); ok {
			continue
		}
		return instrs[i], IsTerminator(instrs[i])
	}
	return nil, false
}

// ---- Statements ----

func (b *fnBuilder) lowerStmts(stmts []Stmt) {
	for _, s := range stmts {
		b.lowerStmt(s)
	}
}

func (b *fnBuilder) lowerStmt(s Stmt) {
	switch st := s.(type) {
	case *ExprStmt:
		b.lowerExpr(st.X)
	case *VarDeclStmt:
		v := &Variable{Name: st.Name, Type: st.TypeName, IsLocal: true}
		b.locals[st.Name] = v
		if st.Init != nil {
			val := b.lowerExpr(st.Init)
			b.emit(&Copy{Dest: v, Src: val})
		}
	case *AssignStmt:
		b.lowerAssign(st)
	case *IfStmt:
		b.lowerIf(st)
	case *WhileStmt:
		b.lowerWhile(st)
	case *ForStmt:
		b.lowerFor(st)
	case *ReturnStmt:
		if st.Value == nil {
			b.emit(&Return{})
			return
		}
		b.emit(&Return{Value: b.lowerExpr(st.Value)})
	}
}

func (b *fnBuilder) lowerAssign(st *AssignStmt) {
	val := b.lowerExpr(st.Value)
	switch target := st.Target.(type) {
	case *Ident:
		if v, ok := b.locals[target.Name]; ok {
			b.emit(&Copy{Dest: v, Src: val})
			return
		}
		b.emit(&PropertySet{Object: b.thisOperand(), Property: target.Name, Value: val})
	case *PropertyAccessExpr:
		obj := b.lowerExpr(target.Object)
		b.emit(&PropertySet{Object: obj, Property: target.Property, Value: val})
	case *IndexExpr:
		arr := b.lowerExpr(target.Array)
		idx := b.lowerExpr(target.Index)
		b.emit(&ArrayAssignment{Array: arr, Index: idx, Value: val})
	}
}

func (b *fnBuilder) lowerIf(st *IfStmt) {
	cond := b.lowerExpr(st.Cond)
	elseLabel := b.newLabel("else")
	endLabel := b.newLabel("endif")
	b.emit(&ConditionalJump{Condition: cond, Target: elseLabel})
	b.lowerStmts(st.Then)
	if len(st.Else) > 0 {
		b.emit(&UnconditionalJump{Target: endLabel})
		b.emit(&LabelInstr{L: elseLabel})
		b.lowerStmts(st.Else)
		b.emit(&LabelInstr{L: endLabel})
	} else {
		b.emit(&LabelInstr{L: elseLabel})
	}
}

func (b *fnBuilder) lowerWhile(st *WhileStmt) {
	startLabel := b.newLabel("while")
	endLabel := b.newLabel("endwhile")
	b.emit(&LabelInstr{L: startLabel})
	cond := b.lowerExpr(st.Cond)
	b.emit(&ConditionalJump{Condition: cond, Target: endLabel})
	b.lowerStmts(st.Body)
	b.emit(&UnconditionalJump{Target: startLabel})
	b.emit(&LabelInstr{L: endLabel})
}

func (b *fnBuilder) lowerFor(st *ForStmt) {
	if st.Init != nil {
		b.lowerStmt(st.Init)
	}
	startLabel := b.newLabel("for")
	endLabel := b.newLabel("endfor")
	b.emit(&LabelInstr{L: startLabel})
	if st.Cond != nil {
		cond := b.lowerExpr(st.Cond)
		b.emit(&ConditionalJump{Condition: cond, Target: endLabel})
	}
	b.lowerStmts(st.Body)
	if st.Post != nil {
		b.lowerStmt(st.Post)
	}
	b.emit(&UnconditionalJump{Target: startLabel})
	b.emit(&LabelInstr{L: endLabel})
}

// ---- Expressions ----

func (b *fnBuilder) lowerExpr(e Expr) Operand {
	switch x := e.(type) {
	case *Literal:
		val := x.Value
		if s, ok := val.(string); ok {
			val = decodeUTF16StringLiteral(s)
		}
		return &Constant{Value: val, UdonType: hostTypeName(x.TypeName), TypeSymbol: x.TypeName}
	case *Ident:
		return b.resolveIdent(x)
	case *BinaryExpr:
		left := b.lowerExpr(x.Left)
		right := b.lowerExpr(x.Right)
		t := b.newTemp("")
		b.emit(&BinaryOp{Dest: t, Op: x.Op, Left: left, Right: right})
		return t
	case *UnaryExpr:
		operand := b.lowerExpr(x.Operand)
		t := b.newTemp("")
		b.emit(&UnaryOp{Dest: t, Op: x.Op, Operand: operand})
		return t
	case *CallExpr:
		args := make([]Operand, len(x.Args))
		for i, a := range x.Args {
			args[i] = b.lowerExpr(a)
		}
		if x.Func == "ctor" {
			t := b.newTemp(x.Owner)
			b.emit(&Call{Dest: t, Owner: x.Owner, Func: "ctor", Args: args})
			return t
		}
		t := b.newTemp("")
		b.emit(&Call{Dest: t, Owner: x.Owner, Func: x.Func, Args: args})
		return t
	case *MethodCallExpr:
		obj := b.lowerExpr(x.Object)
		args := make([]Operand, len(x.Args))
		for i, a := range x.Args {
			args[i] = b.lowerExpr(a)
		}
		t := b.newTemp("")
		b.emit(&MethodCall{Dest: t, Object: obj, Method: x.Method, Args: args})
		return t
	case *PropertyAccessExpr:
		obj := b.lowerExpr(x.Object)
		t := b.newTemp("")
		b.emit(&PropertyGet{Dest: t, Object: obj, Property: x.Property})
		return t
	case *IndexExpr:
		arr := b.lowerExpr(x.Array)
		idx := b.lowerExpr(x.Index)
		t := b.newTemp("")
		b.emit(&ArrayAccess{Dest: t, Array: arr, Index: idx})
		return t
	case *CastExpr:
		src := b.lowerExpr(x.X)
		t := b.newTemp(x.TypeName)
		b.emit(&Cast{Dest: t, Src: src, ToType: x.TypeName})
		return t
	default:
		return &Constant{Value: nil, UdonType: "System.Object"}
	}
}

// CollectTopLevelConsts merges every module's top-level consts, in
// module order and then declaration order within a module, reporting a
// duplicate-definition error (collected, not raised) the second time a
// name is seen across files (spec §4.3: "duplicate top-level const
// detection across files"). The return is a slice, not a name-keyed
// map: spec §5's ordering guarantee ("registration order ... preserved
// in all iteration surfaces") extends to the __init_consts sequence
// ConvertTopLevelConsts builds from it, which in turn drives first-use
// heap-address assignment during lowering — a map here would make that
// address assignment, and the emitted assembly, vary run to run.
func CollectTopLevelConsts(modules []*Module, errs *ErrorCollector) []*TopLevelConst {
	seen := map[string]*TopLevelConst{}
	var out []*TopLevelConst
	for _, mod := range modules {
		for _, c := range mod.Consts {
			if prior, ok := seen[c.Name]; ok {
				errs.Add(NewCompileError(TypeError, mod.File, c.Pos.Line, c.Pos.Column,
					"top-level const "+c.Name+" redeclared, first defined in "+prior.Pos.File))
				continue
			}
			seen[c.Name] = c
			out = append(out, c)
		}
	}
	return out
}

// ConvertTopLevelConsts lowers each top-level const, in the order
// CollectTopLevelConsts returned them, into an exported local Variable
// definition. It returns the init instructions (to run once before any
// entry point body) and a name->Variable table for Ident resolution at
// the program level (spec §4.3: "expose every top-level const as a
// Variable with isLocal=true, isExported=true when reachable").
func (conv *Converter) ConvertTopLevelConsts(consts []*TopLevelConst) ([]Instr, map[string]*Variable) {
	vars := make(map[string]*Variable, len(consts))
	dummyFn := &Func{}
	b := &fnBuilder{conv: conv, fn: dummyFn, locals: map[string]*Variable{}}
	for _, c := range consts {
		v := &Variable{Name: c.Name, Type: c.TypeName, IsLocal: true, IsExported: true}
		vars[c.Name] = v
		val := b.lowerExpr(c.Value)
		dummyFn.Instrs = append(dummyFn.Instrs, &Copy{Dest: v, Src: val})
	}
	return dummyFn.Instrs, vars
}
