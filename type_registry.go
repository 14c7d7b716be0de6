// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// MemberKind classifies a MemberMetadata entry.
type MemberKind int

// Member kinds.
const (
	MemberMethod MemberKind = iota
	MemberProperty
	MemberConstructor
)

// MemberMetadata describes one overload of a type member (spec §3).
type MemberMetadata struct {
	OwnerHostType    string
	Name             string
	Kind             MemberKind
	ParamHostTypes   []string
	ReturnHostType   string
	IsStatic         bool
	SignatureOverride string // explicit override, emitted verbatim when set
}

// TypeMetadata is the registry's per-type record: the host/source name
// pair plus an insertion-ordered map from member name to its overloads
// (spec §3).
type TypeMetadata struct {
	HostFullName string
	SourceName   string
	memberOrder  []string
	members      map[string][]*MemberMetadata
}

func newTypeMetadata(hostFullName, sourceName string) *TypeMetadata {
	return &TypeMetadata{
		HostFullName: hostFullName,
		SourceName:   sourceName,
		members:      make(map[string][]*MemberMetadata),
	}
}

// addOverload appends an overload, preserving registration order both
// within the member's overload list and across first-seen member names.
func (t *TypeMetadata) addOverload(m *MemberMetadata) {
	if _, ok := t.members[m.Name]; !ok {
		t.memberOrder = append(t.memberOrder, m.Name)
	}
	t.members[m.Name] = append(t.members[m.Name], m)
}

// getOverloads returns the member's overload list in registration order.
func (t *TypeMetadata) getOverloads(name string) []*MemberMetadata {
	return t.members[name]
}

// hasMember reports whether name was registered at all.
func (t *TypeMetadata) hasMember(name string) bool {
	_, ok := t.members[name]
	return ok
}

// TypeMetadataRegistry is the TMR (spec §2, §4.1): source-visible type
// name -> TypeMetadata, built during the build phase and read-only once
// compilation starts (spec §5).
type TypeMetadataRegistry struct {
	order []string
	types map[string]*TypeMetadata
}

// NewTypeMetadataRegistry returns an empty registry.
func NewTypeMetadataRegistry() *TypeMetadataRegistry {
	return &TypeMetadataRegistry{types: make(map[string]*TypeMetadata)}
}

// Register records or returns the existing TypeMetadata for sourceName,
// preserving first-registration order across Types().
func (r *TypeMetadataRegistry) Register(sourceName, hostFullName string) *TypeMetadata {
	if tm, ok := r.types[sourceName]; ok {
		return tm
	}
	tm := newTypeMetadata(hostFullName, sourceName)
	r.types[sourceName] = tm
	r.order = append(r.order, sourceName)
	return tm
}

// RegisterMember adds one overload record under sourceName/m.Name.
func (r *TypeMetadataRegistry) RegisterMember(sourceName string, m *MemberMetadata) {
	tm, ok := r.types[sourceName]
	if !ok {
		tm = r.Register(sourceName, m.OwnerHostType)
	}
	tm.addOverload(m)
}

// Has reports whether sourceName is registered.
func (r *TypeMetadataRegistry) Has(sourceName string) bool {
	_, ok := r.types[sourceName]
	return ok
}

// IsEmpty reports whether the registry has no types registered.
func (r *TypeMetadataRegistry) IsEmpty() bool {
	return len(r.types) == 0
}

// Clear empties the registry; the process-wide singleton's rebuild hook
// (spec §5, §9): equivalent to allocating a fresh compilation session.
func (r *TypeMetadataRegistry) Clear() {
	r.order = nil
	r.types = make(map[string]*TypeMetadata)
}

// GetMember returns the first registered overload for (typeName, member),
// or nil if absent (TMR.get-first).
func (r *TypeMetadataRegistry) GetMember(typeName, member string) *MemberMetadata {
	tm, ok := r.types[typeName]
	if !ok {
		return nil
	}
	ovl := tm.getOverloads(member)
	if len(ovl) == 0 {
		return nil
	}
	return ovl[0]
}

// GetOverloads returns every overload for (typeName, member) in
// registration order (TMR.get-overloads).
func (r *TypeMetadataRegistry) GetOverloads(typeName, member string) []*MemberMetadata {
	tm, ok := r.types[typeName]
	if !ok {
		return nil
	}
	return tm.getOverloads(member)
}

// scoreParam scores a single parameter match between a declared host
// type and a supplied host type (spec §4.1): 2 for an exact match, 1
// for a generic placeholder / Object / integer-to-integer, 0 otherwise.
func scoreParam(declared, supplied string) (score int, ok bool) {
	if declared == supplied {
		return 2, true
	}
	if declared == "T" || declared == "System.Object" || declared == "object" {
		return 1, true
	}
	if isIntegerHostType(declared) && isIntegerHostType(supplied) {
		return 1, true
	}
	return 0, false
}

var integerHostTypes = map[string]bool{
	"System.Int32": true, "System.UInt32": true,
	"System.Int64": true, "System.UInt64": true,
	"System.Int16": true, "System.UInt16": true,
	"System.SByte": true, "System.Byte": true,
}

func isIntegerHostType(hostType string) bool {
	return integerHostTypes[hostType]
}

// ResolveOverload selects, among name's overloads, the one matching
// arity whose pairwise-score sum is maximal; it rejects a candidate the
// moment any parameter fails to score (spec §3, §4.1).
func (t *TypeMetadata) ResolveOverload(name string, paramHostTypes []string) *MemberMetadata {
	candidates := t.getOverloads(name)
	if len(candidates) == 0 {
		return nil
	}
	if paramHostTypes == nil {
		return candidates[0]
	}
	var best *MemberMetadata
	bestScore := -1
	for _, cand := range candidates {
		if len(cand.ParamHostTypes) != len(paramHostTypes) {
			continue
		}
		total := 0
		rejected := false
		for i, declared := range cand.ParamHostTypes {
			s, ok := scoreParam(declared, paramHostTypes[i])
			if !ok {
				rejected = true
				break
			}
			total += s
		}
		if rejected {
			continue
		}
		if total > bestScore {
			bestScore = total
			best = cand
		}
	}
	return best
}

// ResolveOverloadByArity picks the first overload matching arity alone,
// used when parameter types are unavailable (TMR.resolve-overload-by-
// arity-and-types degraded path).
func (t *TypeMetadata) ResolveOverloadByArity(name string, arity int) *MemberMetadata {
	for _, cand := range t.getOverloads(name) {
		if len(cand.ParamHostTypes) == arity {
			return cand
		}
	}
	return nil
}
