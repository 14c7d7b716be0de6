// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "github.com/saferwall/udonc/log"

// CompiledEntryPoint is one entry point's final assembly text plus its
// budget report, if one was produced (spec §4.6 step 6).
type CompiledEntryPoint struct {
	Class    string
	Assembly string
	Budget   *BudgetReport
}

// Orchestrator runs the per-entry-point pipeline of spec §4.6: reach
// analysis, const merge, TAC conversion and optimization, lowering,
// budget enforcement, assembly. It owns no global state beyond the
// process-wide ESR it was built with — TMR construction and signature
// registration happen in the build phase before an Orchestrator exists
// (spec §5).
type Orchestrator struct {
	esr  *ExternSignatureRegistry
	opts *Options
}

// NewOrchestrator builds an orchestrator resolving signatures through
// esr, under opts (nil selects every default, per Options.defaulted).
func NewOrchestrator(esr *ExternSignatureRegistry, opts *Options) *Orchestrator {
	return &Orchestrator{esr: esr, opts: opts.defaulted()}
}

// Compile runs the pipeline for every entry point across modules.
// parseErrs carries whatever the caller's parse/load phase already
// collected; if non-empty, Compile raises an AggregateError immediately
// and writes nothing (spec §7: "raises an aggregate error ... before
// writing any output"). A duplicate top-level const is scoped to the
// one entry point whose reachable-class set includes the collision —
// spec §4.6 step 2 ("skip E") reads as a per-entry skip rather than a
// whole-run abort, so it only removes that entry point from the result
// set and is logged, not escalated to an AggregateError (Open Question,
// resolved here; see DESIGN.md).
func (o *Orchestrator) Compile(modules []*Module, parseErrs *ErrorCollector) ([]*CompiledEntryPoint, error) {
	if parseErrs != nil {
		if agg := parseErrs.AggregateIfAny(); agg != nil {
			return nil, agg
		}
	}

	classes := NewClassRegistry()
	moduleByFile := map[string]*Module{}
	for _, mod := range modules {
		moduleByFile[mod.File] = mod
		for _, c := range mod.Classes {
			PrepareClass(c)
			classes.Add(c)
		}
	}

	validationErrs := NewErrorCollector()
	ValidateInheritance(classes, validationErrs)
	if agg := validationErrs.AggregateIfAny(); agg != nil {
		return nil, agg
	}

	entryPoints := classes.EntryPoints()
	if len(entryPoints) == 0 {
		return nil, ErrNoEntryPoints
	}

	analyzer := NewCallAnalyzer(classes)
	helper := log.NewHelper(o.opts.Logger)

	var results []*CompiledEntryPoint
	for _, entry := range entryPoints {
		result, entryErrs := o.compileEntry(entry, classes, moduleByFile, analyzer)
		if len(entryErrs) > 0 {
			for _, e := range entryErrs {
				helper.Warnf("skipping entry point %s: %s", entry.Name, e.Error())
			}
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// compileEntry runs steps 1-6 of spec §4.6 for a single entry point.
// A non-empty error slice means the entry point is skipped entirely
// (duplicate top-level const) or failed lowering (missing signature);
// either way the caller continues with the next entry point.
func (o *Orchestrator) compileEntry(
	entry *ClassDecl,
	classes *ClassRegistry,
	moduleByFile map[string]*Module,
	analyzer *CallAnalyzer,
) (*CompiledEntryPoint, []*CompileError) {

	reachable := analyzer.ReachableInlineClasses(entry)
	scope := append([]*ClassDecl{entry}, reachable...)

	modulesInScope := distinctModulesForClasses(scope, moduleByFile)

	constErrs := NewErrorCollector()
	consts := CollectTopLevelConsts(modulesInScope, constErrs)
	if constErrs.HasErrors() {
		return nil, constErrs.Errors()
	}

	conv := NewConverter(classes, o.esr)
	initInstrs, constVars := conv.ConvertTopLevelConsts(consts)
	conv.SetTopLevelConsts(constVars)

	var funcs []*Func
	funcs = append(funcs, &Func{OwnerClass: entry.Name, Name: "__init_consts", Instrs: initInstrs})
	for _, cls := range scope {
		funcs = append(funcs, conv.ConvertConstructor(cls))
		for _, m := range orderedMethods(cls) {
			funcs = append(funcs, conv.ConvertMethod(cls, m))
		}
	}

	if o.opts.Optimize {
		for _, fn := range funcs {
			Optimize(fn)
		}
	}

	lowerErrs := NewErrorCollector()
	lowerer := NewLowerer(o.esr)
	var code []VMInstr
	for _, fn := range funcs {
		code = append(code, lowerer.Lower(fn, lowerErrs)...)
	}
	if lowerErrs.HasErrors() {
		return nil, lowerErrs.Errors()
	}

	if o.opts.EmitReflection {
		lowerer.AppendReflectionEntries(entry)
	}

	prog := &VMProgram{
		Data:           lowerer.Data(),
		Code:           code,
		ClassHeapUsage: lowerer.ClassHeapUsage(),
	}

	budget := o.checkBudget(entry, lowerer, analyzer, classes, reachable)

	asmErrs := NewErrorCollector()
	text := NewAssembler().Assemble(prog, asmErrs)
	for _, e := range asmErrs.Errors() {
		o.opts.Logger.Log(log.LevelWarn, "msg", e.Error())
	}

	return &CompiledEntryPoint{Class: entry.Name, Assembly: text, Budget: budget}, nil
}

// checkBudget runs spec §4.6 step 5. It is never fatal: an over-budget
// program still produces a CompiledEntryPoint (spec §7: "the
// orchestrator still emits the file unless configured otherwise").
func (o *Orchestrator) checkBudget(
	entry *ClassDecl, lowerer *Lowerer, analyzer *CallAnalyzer, classes *ClassRegistry, reachable []*ClassDecl,
) *BudgetReport {
	total := lowerer.HeapUsage()

	children := map[string][]string{entry.Name: analyzer.DirectReferences(entry)}
	reachableNames := make([]string, len(reachable))
	for i, c := range reachable {
		reachableNames[i] = c.Name
		children[c.Name] = analyzer.DirectReferences(c)
	}

	estimateSplit := func(clsName string) int {
		cls := classes.Get(clsName)
		if cls == nil {
			return 0
		}
		return o.estimateHeapAsEntryPoint(cls, classes, analyzer)
	}

	if CheckSoftWarning(o.opts.Extension, total) {
		o.opts.Logger.Log(log.LevelWarn, "msg", "heap usage crossed the short-mode soft warning threshold",
			"entry", entry.Name, "total", total, "threshold", SoftWarningThreshold)
	}

	report := CheckBudget(entry.Name, total, o.opts.HeapBudget, lowerer.ClassHeapUsage(), children, reachableNames, estimateSplit)
	if report != nil {
		o.opts.Logger.Log(log.LevelWarn, "msg", "heap budget exceeded", "entry", entry.Name,
			"total", total, "limit", o.opts.HeapBudget)
	}
	return report
}

// estimateHeapAsEntryPoint re-runs conversion and lowering with cls
// treated as an independent entry point, for the split-candidate
// estimate (spec §4.6 step 5). It ignores const-collision/missing-
// signature failures; an estimate is advisory only.
func (o *Orchestrator) estimateHeapAsEntryPoint(cls *ClassDecl, classes *ClassRegistry, analyzer *CallAnalyzer) int {
	reachable := analyzer.ReachableInlineClasses(cls)
	scope := append([]*ClassDecl{cls}, reachable...)

	conv := NewConverter(classes, o.esr)
	discard := NewErrorCollector()

	var funcs []*Func
	for _, c := range scope {
		funcs = append(funcs, conv.ConvertConstructor(c))
		for _, m := range orderedMethods(c) {
			funcs = append(funcs, conv.ConvertMethod(c, m))
		}
	}
	if o.opts.Optimize {
		for _, fn := range funcs {
			Optimize(fn)
		}
	}
	lowerer := NewLowerer(o.esr)
	for _, fn := range funcs {
		lowerer.Lower(fn, discard)
	}
	return lowerer.HeapUsage()
}

// distinctModulesForClasses returns, in first-seen order, the module
// for every distinct file among classes (spec §4.6 step 2: "collect
// top-level constants for E's file and for each distinct file of any
// class in R(E)").
func distinctModulesForClasses(classDecls []*ClassDecl, moduleByFile map[string]*Module) []*Module {
	seen := map[string]bool{}
	var out []*Module
	for _, c := range classDecls {
		if seen[c.File] {
			continue
		}
		seen[c.File] = true
		if mod, ok := moduleByFile[c.File]; ok {
			out = append(out, mod)
		}
	}
	return out
}
