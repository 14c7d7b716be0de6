// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// MethodUsageAnalyzer computes the set of methods reachable from an
// entry point across the entry class and its reachable inline classes
// (spec §4.2: "reachable methods from an entry").
type MethodUsageAnalyzer struct {
	classes *ClassRegistry
}

// NewMethodUsageAnalyzer builds an analyzer over classes.
func NewMethodUsageAnalyzer(classes *ClassRegistry) *MethodUsageAnalyzer {
	return &MethodUsageAnalyzer{classes: classes}
}

// MethodRef identifies one method by its owning class.
type MethodRef struct {
	Class  string
	Method string
}

// ReachableMethods walks the call graph starting from entry's entry
// method ("Start"/"_start") and every other method the entry class
// declares (event handlers run even without an explicit call site),
// following MethodCallExpr targets whose method name matches a method
// on any class in universe. Constructor bodies are not walked.
func (a *MethodUsageAnalyzer) ReachableMethods(entry *ClassDecl, universe []*ClassDecl) []MethodRef {
	byMethodName := map[string][]MethodRef{}
	bodies := map[MethodRef][]Stmt{}
	all := append([]*ClassDecl{entry}, universe...)
	for _, c := range all {
		for _, m := range c.Methods {
			ref := MethodRef{Class: c.Name, Method: m.Name}
			byMethodName[m.Name] = append(byMethodName[m.Name], ref)
			bodies[ref] = m.Body
		}
	}

	visited := map[MethodRef]bool{}
	var order []MethodRef
	var queue []MethodRef
	for _, m := range entry.Methods {
		ref := MethodRef{Class: entry.Name, Method: m.Name}
		visited[ref] = true
		order = append(order, ref)
		queue = append(queue, ref)
	}

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		walkStmts(bodies[ref], nil, func(e Expr) {
			mc, ok := e.(*MethodCallExpr)
			if !ok {
				return
			}
			for _, cand := range byMethodName[mc.Method] {
				if visited[cand] {
					continue
				}
				visited[cand] = true
				order = append(order, cand)
				queue = append(queue, cand)
			}
		})
	}
	return order
}
