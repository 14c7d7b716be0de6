// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// CallAnalyzer computes, for each class, the set of non-entry classes
// it references inline (spec §2, §4.6: R(E)).
type CallAnalyzer struct {
	classes *ClassRegistry
}

// NewCallAnalyzer builds an analyzer over classes.
func NewCallAnalyzer(classes *ClassRegistry) *CallAnalyzer {
	return &CallAnalyzer{classes: classes}
}

// DirectReferences returns the set of class names c's body syntactically
// mentions as a type: property/parameter/local declarations, `new T(...)`
// constructions, and casts.
func (a *CallAnalyzer) DirectReferences(c *ClassDecl) []string {
	seen := map[string]bool{}
	var out []string
	note := func(typeName string) {
		name := stripArraySuffix(typeName)
		if name == "" || name == c.Name {
			return
		}
		if a.classes.Get(name) == nil {
			return // not a known inline class (builtin or unresolved)
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, p := range c.Properties {
		note(p.TypeName)
	}
	for _, m := range c.Methods {
		for _, param := range m.Params {
			note(param.TypeName)
		}
		walkStmts(m.Body, func(s Stmt) {
			if v, ok := s.(*VarDeclStmt); ok {
				note(v.TypeName)
			}
		}, func(e Expr) {
			switch x := e.(type) {
			case *CallExpr:
				if x.Func == "ctor" {
					note(x.Owner)
				}
			case *CastExpr:
				note(x.TypeName)
			}
		})
	}
	if c.Ctor != nil {
		for _, param := range c.Ctor.Params {
			note(param.TypeName)
		}
	}
	return out
}

// ReachableInlineClasses computes R(E): every non-entry, non-stub class
// transitively reachable from entry through DirectReferences, in
// breadth-first discovery order (spec §4.6 step 1).
func (a *CallAnalyzer) ReachableInlineClasses(entry *ClassDecl) []*ClassDecl {
	visited := map[string]bool{entry.Name: true}
	queue := []string{entry.Name}
	var order []*ClassDecl
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		cur := a.classes.Get(name)
		if cur == nil {
			continue
		}
		for _, ref := range a.DirectReferences(cur) {
			refClass := a.classes.Get(ref)
			if refClass == nil || refClass.IsEntryPoint() || visited[ref] {
				continue
			}
			visited[ref] = true
			order = append(order, refClass)
			queue = append(queue, ref)
		}
	}
	return order
}

func stripArraySuffix(typeName string) string {
	for len(typeName) >= 2 && typeName[len(typeName)-2:] == "[]" {
		typeName = typeName[:len(typeName)-2]
	}
	return typeName
}

// walkStmts visits every statement and expression reachable from stmts,
// calling onStmt/onExpr (either may be nil) for each node it finds. It
// is the one generic tree walk every syntax-directed analysis in this
// package (call analysis, method-usage analysis) builds on.
func walkStmts(stmts []Stmt, onStmt func(Stmt), onExpr func(Expr)) {
	for _, s := range stmts {
		if onStmt != nil {
			onStmt(s)
		}
		switch st := s.(type) {
		case *ExprStmt:
			walkExpr(st.X, onExpr)
		case *VarDeclStmt:
			if st.Init != nil {
				walkExpr(st.Init, onExpr)
			}
		case *AssignStmt:
			walkExpr(st.Target, onExpr)
			walkExpr(st.Value, onExpr)
		case *IfStmt:
			walkExpr(st.Cond, onExpr)
			walkStmts(st.Then, onStmt, onExpr)
			walkStmts(st.Else, onStmt, onExpr)
		case *WhileStmt:
			walkExpr(st.Cond, onExpr)
			walkStmts(st.Body, onStmt, onExpr)
		case *ForStmt:
			if st.Init != nil {
				walkStmts([]Stmt{st.Init}, onStmt, onExpr)
			}
			if st.Cond != nil {
				walkExpr(st.Cond, onExpr)
			}
			if st.Post != nil {
				walkStmts([]Stmt{st.Post}, onStmt, onExpr)
			}
			walkStmts(st.Body, onStmt, onExpr)
		case *ReturnStmt:
			if st.Value != nil {
				walkExpr(st.Value, onExpr)
			}
		}
	}
}

func walkExpr(e Expr, onExpr func(Expr)) {
	if e == nil {
		return
	}
	if onExpr != nil {
		onExpr(e)
	}
	switch x := e.(type) {
	case *BinaryExpr:
		walkExpr(x.Left, onExpr)
		walkExpr(x.Right, onExpr)
	case *UnaryExpr:
		walkExpr(x.Operand, onExpr)
	case *CallExpr:
		for _, a := range x.Args {
			walkExpr(a, onExpr)
		}
	case *MethodCallExpr:
		walkExpr(x.Object, onExpr)
		for _, a := range x.Args {
			walkExpr(a, onExpr)
		}
	case *PropertyAccessExpr:
		walkExpr(x.Object, onExpr)
	case *IndexExpr:
		walkExpr(x.Array, onExpr)
		walkExpr(x.Index, onExpr)
	case *CastExpr:
		walkExpr(x.X, onExpr)
	}
}
