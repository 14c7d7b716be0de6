// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "fmt"

// DataEntry is one typed heap slot the assembler will serialize (spec
// §4.5: "records a typed data entry (name, address, vmType,
// initialValue?)").
type DataEntry struct {
	Name         string
	Address      int
	VMType       string
	InitialValue interface{} // nil when uninitialized
	SyncMode     string      // "" when not networked/synced
	Exported     bool
}

// VMInstr is one lowered bytecode instruction (spec §4.5).
type VMInstr struct {
	Op        string // PUSH, POP, COPY, EXTERN, JUMP, JUMP_IF_FALSE, JUMP_INDIRECT
	Operand   string // address/symbol/signature/label, already formatted
	Label     string // non-"" when this instruction is preceded by "<label>:"
	SizeBytes int    // 4 for POP/COPY, 8 otherwise (spec §4.5)
}

// VMProgram is one entry point's fully lowered output.
type VMProgram struct {
	Data  []DataEntry
	Code  []VMInstr
	// ClassHeapUsage counts, per originating class name, how many heap
	// entries it introduced (spec §4.5/§4.6: per-class heap usage for
	// the budget breakdown tree).
	ClassHeapUsage map[string]int
}

// Lowerer walks TAC and emits VM data/code, resolving extern
// signatures through the ESR (spec §4.5).
type Lowerer struct {
	esr *ExternSignatureRegistry

	addr       map[string]int // operand key -> heap address
	nextAddr   int
	data       []DataEntry
	classUsage map[string]int
}

// NewLowerer builds a lowerer backed by esr.
func NewLowerer(esr *ExternSignatureRegistry) *Lowerer {
	return &Lowerer{
		esr:        esr,
		addr:       map[string]int{},
		classUsage: map[string]int{},
	}
}

// allocate assigns op a fresh heap address on first use and records a
// typed data entry, crediting owner's class heap usage (spec §4.5/§9:
// "heap addresses are assigned in first-use order").
func (l *Lowerer) allocate(op Operand, owner string) int {
	key := opKey(op)
	if a, ok := l.addr[key]; ok {
		return a
	}
	a := l.nextAddr
	l.nextAddr++
	l.addr[key] = a

	entry := DataEntry{Address: a}
	switch o := op.(type) {
	case *Variable:
		entry.Name = o.Name
		entry.VMType = hostTypeName(o.Type)
		entry.Exported = o.IsExported
	case *Temporary:
		entry.Name = fmt.Sprintf("__tmp%d", o.ID)
		entry.VMType = hostTypeName(o.Type)
	case *Constant:
		entry.Name = fmt.Sprintf("__const%d", a)
		entry.VMType = o.UdonType
		entry.InitialValue = o.Value
	}
	l.data = append(l.data, entry)
	if owner != "" {
		l.classUsage[owner]++
	}
	return a
}

func (l *Lowerer) operandRef(op Operand, owner string) string {
	if lbl, ok := op.(*Label); ok {
		return lbl.Name
	}
	return fmt.Sprintf("%d", l.allocate(op, owner))
}

// Lower walks fn.Instrs left-to-right and returns the function's VM
// instructions. Heap allocations accumulate in the Lowerer, so every
// function lowered by one Lowerer shares one data section (spec §4.5:
// walks TAC left-to-right; reused across an entry point's merged
// program).
func (l *Lowerer) Lower(fn *Func, errs *ErrorCollector) []VMInstr {
	var code []VMInstr
	emitInstr := func(op, operand, label string, size int) {
		code = append(code, VMInstr{Op: op, Operand: operand, Label: label, SizeBytes: size})
	}
	pendingLabel := ""
	takeLabel := func() string {
		lbl := pendingLabel
		pendingLabel = ""
		return lbl
	}

	for _, instr := range fn.Instrs {
		switch i := instr.(type) {
		case *LabelInstr:
			pendingLabel = i.L.Name
		case *Copy, *Assignment, *Cast:
			l.lowerSimpleMove(instr, fn.OwnerClass, &code, takeLabel)
		case *BinaryOp:
			l.pushOperandsAndExtern(operandHostType(i.Left), operatorMemberName(i.Op),
				[]Operand{i.Left, i.Right}, i.Dest, fn.OwnerClass, &code, takeLabel, errs, fn.Name)
		case *UnaryOp:
			l.pushOperandsAndExtern(operandHostType(i.Operand), operatorMemberName(i.Op),
				[]Operand{i.Operand}, i.Dest, fn.OwnerClass, &code, takeLabel, errs, fn.Name)
		case *Call:
			l.lowerCall(i, fn.OwnerClass, &code, takeLabel, errs, fn.Name)
		case *MethodCall:
			l.lowerMethodCall(i, fn.OwnerClass, &code, takeLabel, errs, fn.Name)
		case *PropertyGet:
			l.lowerPropertyGet(i, fn.OwnerClass, &code, takeLabel, errs, fn.Name)
		case *PropertySet:
			l.lowerPropertySet(i, fn.OwnerClass, &code, takeLabel, errs, fn.Name)
		case *ArrayAccess:
			l.lowerArrayAccess(i, fn.OwnerClass, &code, takeLabel)
		case *ArrayAssignment:
			l.lowerArrayAssignment(i, fn.OwnerClass, &code, takeLabel)
		case *Return:
			label := takeLabel()
			if i.Value != nil {
				emitInstr("PUSH", l.operandRef(i.Value, fn.OwnerClass), label, 8)
				label = ""
			}
			emitInstr("JUMP_INDIRECT", "__returnAddress", label, 8)
		case *UnconditionalJump:
			emitInstr("JUMP", i.Target.Name, takeLabel(), 8)
		case *ConditionalJump:
			emitInstr("PUSH", l.operandRef(i.Condition, fn.OwnerClass), takeLabel(), 8)
			emitInstr("JUMP_IF_FALSE", i.Target.Name, "", 8)
		}
	}
	return code
}

func operatorMemberName(op string) string {
	switch op {
	case "+":
		return "op_Addition"
	case "-":
		return "op_Subtraction"
	case "*":
		return "op_Multiply"
	case "/":
		return "op_Division"
	case "==":
		return "op_Equality"
	case "!=":
		return "op_Inequality"
	case "<":
		return "op_LessThan"
	case "<=":
		return "op_LessThanOrEqual"
	case ">":
		return "op_GreaterThan"
	case ">=":
		return "op_GreaterThanOrEqual"
	case "!":
		return "op_UnaryNegation"
	case "&&":
		return "op_LogicalAnd"
	case "||":
		return "op_LogicalOr"
	default:
		return "op_" + op
	}
}

func (l *Lowerer) lowerSimpleMove(instr Instr, owner string, code *[]VMInstr, takeLabel func() string) {
	var dest, src Operand
	switch i := instr.(type) {
	case *Copy:
		dest, src = i.Dest, i.Src
	case *Assignment:
		dest, src = i.Dest, i.Src
	case *Cast:
		dest, src = i.Dest, i.Src
	}
	l.allocate(dest, owner)
	*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(src, owner), Label: takeLabel(), SizeBytes: 8})
	*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(dest, owner), SizeBytes: 8})
	*code = append(*code, VMInstr{Op: "COPY", SizeBytes: 4})
}

func (l *Lowerer) pushOperandsAndExtern(typeName, member string, args []Operand, dest Operand, owner string, code *[]VMInstr, takeLabel func() string, errs *ErrorCollector, fnName string) {
	first := true
	for _, a := range args {
		label := ""
		if first {
			label = takeLabel()
			first = false
		}
		*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(a, owner), Label: label, SizeBytes: 8})
	}
	if dest != nil {
		l.allocate(dest, owner)
		*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(dest, owner), SizeBytes: 8})
	}
	paramHost := make([]string, len(args))
	for i, a := range args {
		paramHost[i] = operandHostType(a)
	}
	retHost := "System.Void"
	if dest != nil {
		retHost = operandHostType(dest)
		if retHost == "" {
			retHost = "System.Object"
		}
	}
	sig, ok := l.esr.Resolve(typeName, member, AccessMethod, paramHost, retHost)
	if !ok {
		errs.Add(NewCompileError(InternalError, "", 0, 0,
			"missing extern signature for "+typeName+"."+member+" in "+fnName))
		return
	}
	*code = append(*code, VMInstr{Op: "EXTERN", Operand: "\"" + string(sig) + "\"", SizeBytes: 8})
}

func operandHostType(op Operand) string {
	switch o := op.(type) {
	case *Variable:
		return hostTypeName(o.Type)
	case *Temporary:
		return hostTypeName(o.Type)
	case *Constant:
		return o.UdonType
	default:
		return "System.Object"
	}
}

func (l *Lowerer) lowerCall(i *Call, owner string, code *[]VMInstr, takeLabel func() string, errs *ErrorCollector, fnName string) {
	if i.Func == "ctor" {
		first := true
		for _, a := range i.Args {
			label := ""
			if first {
				label = takeLabel()
				first = false
			}
			*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(a, owner), Label: label, SizeBytes: 8})
		}
		if i.Dest != nil {
			l.allocate(i.Dest, owner)
			*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(i.Dest, owner), SizeBytes: 8})
		}
		host := hostTypeName(i.Owner)
		paramHost := make([]string, len(i.Args))
		for idx, a := range i.Args {
			paramHost[idx] = operandHostType(a)
		}
		sig, ok := l.esr.Resolve(host, "ctor", AccessMethod, paramHost, host)
		if !ok {
			errs.Add(NewCompileError(InternalError, "", 0, 0,
				"missing extern signature for "+host+" constructor in "+fnName))
			return
		}
		*code = append(*code, VMInstr{Op: "EXTERN", Operand: "\"" + string(sig) + "\"", SizeBytes: 8})
		return
	}
	l.pushOperandsAndExtern(i.Owner, i.Func, i.Args, i.Dest, owner, code, takeLabel, errs, fnName)
}

func (l *Lowerer) lowerMethodCall(i *MethodCall, owner string, code *[]VMInstr, takeLabel func() string, errs *ErrorCollector, fnName string) {
	args := append([]Operand{i.Object}, i.Args...)
	l.pushOperandsAndExtern(operandHostType(i.Object), i.Method, args, i.Dest, owner, code, takeLabel, errs, fnName)
}

func (l *Lowerer) lowerPropertyGet(i *PropertyGet, owner string, code *[]VMInstr, takeLabel func() string, errs *ErrorCollector, fnName string) {
	l.pushOperandsAndExtern(operandHostType(i.Object), "get_"+i.Property, []Operand{i.Object}, i.Dest, owner, code, takeLabel, errs, fnName)
}

func (l *Lowerer) lowerPropertySet(i *PropertySet, owner string, code *[]VMInstr, takeLabel func() string, errs *ErrorCollector, fnName string) {
	l.pushOperandsAndExtern(operandHostType(i.Object), "set_"+i.Property, []Operand{i.Object, i.Value}, nil, owner, code, takeLabel, errs, fnName)
}

func (l *Lowerer) lowerArrayAccess(i *ArrayAccess, owner string, code *[]VMInstr, takeLabel func() string) {
	l.allocate(i.Dest, owner)
	*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(i.Array, owner), Label: takeLabel(), SizeBytes: 8})
	*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(i.Index, owner), SizeBytes: 8})
	*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(i.Dest, owner), SizeBytes: 8})
	*code = append(*code, VMInstr{Op: "EXTERN", Operand: "\"SystemArray.__Get__SystemInt32__SystemObject\"", SizeBytes: 8})
}

func (l *Lowerer) lowerArrayAssignment(i *ArrayAssignment, owner string, code *[]VMInstr, takeLabel func() string) {
	*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(i.Array, owner), Label: takeLabel(), SizeBytes: 8})
	*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(i.Index, owner), SizeBytes: 8})
	*code = append(*code, VMInstr{Op: "PUSH", Operand: l.operandRef(i.Value, owner), SizeBytes: 8})
	*code = append(*code, VMInstr{Op: "EXTERN", Operand: "\"SystemArray.__Set__SystemInt32_SystemObject__SystemVoid\"", SizeBytes: 8})
}

// Data returns the accumulated data-section entries in first-allocation
// order.
func (l *Lowerer) Data() []DataEntry { return l.data }

// ClassHeapUsage returns per-class heap entry counts accumulated
// across every Lower call against this Lowerer.
func (l *Lowerer) ClassHeapUsage() map[string]int { return l.classUsage }

// HeapUsage is max(address)+1, or 0 when nothing was allocated (spec
// §4.6).
func (l *Lowerer) HeapUsage() int {
	if l.nextAddr == 0 {
		return 0
	}
	return l.nextAddr
}

// AppendReflectionEntries appends the opt-in reflection data entries
// for class cls at fresh addresses above the current maximum (spec
// §4.5): __refl_typeid (Int64, FNV-1a hex), __refl_typename (String),
// __refl_typeids (Int64Array, one per implemented interface).
func (l *Lowerer) AppendReflectionEntries(cls *ClassDecl) {
	id := computeTypeId(cls.Name)
	l.data = append(l.data,
		DataEntry{Name: "__refl_typeid", Address: l.nextAddr, VMType: "Int64", InitialValue: fmt.Sprintf("0x%X", id)},
	)
	l.nextAddr++
	l.data = append(l.data,
		DataEntry{Name: "__refl_typename", Address: l.nextAddr, VMType: "String", InitialValue: cls.Name},
	)
	l.nextAddr++
	ids := make([]uint64, len(cls.Interfaces))
	for i, iface := range cls.Interfaces {
		ids[i] = computeTypeId(iface)
	}
	l.data = append(l.data,
		DataEntry{Name: "__refl_typeids", Address: l.nextAddr, VMType: "Int64Array", InitialValue: ids},
	)
	l.nextAddr++
}
