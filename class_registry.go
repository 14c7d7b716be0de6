// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// ClassRegistry indexes every parsed class by name and exposes merged,
// inheritance-flattened views (spec §4.2).
type ClassRegistry struct {
	order   []string
	classes map[string]*ClassDecl
	// implementsIdx records which interfaces a class claims to
	// implement, independent of BaseClass.
	implementsIdx map[string][]string
}

// NewClassRegistry returns an empty registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		classes:       make(map[string]*ClassDecl),
		implementsIdx: make(map[string][]string),
	}
}

// Add indexes one class. Re-adding a name overwrites the prior
// definition but keeps its original registration order position.
func (r *ClassRegistry) Add(c *ClassDecl) {
	if _, ok := r.classes[c.Name]; !ok {
		r.order = append(r.order, c.Name)
	}
	r.classes[c.Name] = c
	if len(c.Interfaces) > 0 {
		r.implementsIdx[c.Name] = c.Interfaces
	}
}

// Get returns the class named name, or nil.
func (r *ClassRegistry) Get(name string) *ClassDecl {
	return r.classes[name]
}

// Names returns every registered class name in registration order.
func (r *ClassRegistry) Names() []string {
	return append([]string(nil), r.order...)
}

// EntryPoints returns every registered class decorated as an entry
// point, in registration order.
func (r *ClassRegistry) EntryPoints() []*ClassDecl {
	var out []*ClassDecl
	for _, name := range r.order {
		c := r.classes[name]
		if c.IsEntryPoint() {
			out = append(out, c)
		}
	}
	return out
}

// baseChain returns the ordered ancestor names from c upward; when a
// base is not registered its name is the last element. The walk stops
// if a cycle is detected.
func (r *ClassRegistry) baseChain(c *ClassDecl) []string {
	var chain []string
	seen := map[string]bool{c.Name: true}
	cur := c
	for cur.BaseClass != "" {
		if seen[cur.BaseClass] {
			break // cyclic inheritance; inheritance.go reports this
		}
		chain = append(chain, cur.BaseClass)
		seen[cur.BaseClass] = true
		next := r.classes[cur.BaseClass]
		if next == nil {
			break // base not registered (likely the runtime base, or a stub)
		}
		cur = next
	}
	return chain
}

// MergedView is the inheritance-flattened view of a class: base
// properties/methods with subclass overrides replacing base
// definitions by name, each appearing exactly once (spec §4.2).
type MergedView struct {
	Class      *ClassDecl
	Properties []PropertyDecl
	Methods    []MethodDecl
}

// Merged builds c's MergedView by walking from the root of its base
// chain down to c, so subclass members always win by being applied
// last.
func (r *ClassRegistry) Merged(c *ClassDecl) *MergedView {
	chain := r.baseChain(c)
	// Walk root-to-leaf: reverse the chain, then append c itself.
	ordered := make([]*ClassDecl, 0, len(chain)+1)
	for i := len(chain) - 1; i >= 0; i-- {
		if base := r.classes[chain[i]]; base != nil {
			ordered = append(ordered, base)
		}
	}
	ordered = append(ordered, c)

	propIdx := map[string]int{}
	methodIdx := map[string]int{}
	view := &MergedView{Class: c}
	for _, cls := range ordered {
		for _, p := range cls.Properties {
			if i, ok := propIdx[p.Name]; ok {
				view.Properties[i] = p
			} else {
				propIdx[p.Name] = len(view.Properties)
				view.Properties = append(view.Properties, p)
			}
		}
		for _, m := range cls.Methods {
			if i, ok := methodIdx[m.Name]; ok {
				view.Methods[i] = m
			} else {
				methodIdx[m.Name] = len(view.Methods)
				view.Methods = append(view.Methods, m)
			}
		}
	}
	return view
}
