// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "fmt"

// MemberAccess classifies how a member is being referenced, mirroring
// the access kinds the ESR's resolve contract distinguishes (spec §4.1).
type MemberAccess int

// Member accesses.
const (
	AccessMethod MemberAccess = iota
	AccessGetter
	AccessSetter
)

// Signature is a resolved extern signature string (spec §6 grammar).
type Signature string

// staticPropertyKey / staticMethodKey / staticCtorKey key the
// hand-authored static tables (spec §4.1: "Combines a static table
// (hand-authored) with a dynamic stub-scan").
type staticPropertyKey struct{ typeName, member string }
type staticMethodKey struct{ typeName, member string }

// staticPropertyTable and staticMethodTable are the hand-authored
// extern tables for the builtin runtime surface. A real distribution
// carries thousands of entries generated from the host SDK; this is a
// representative slice covering the types exercised by the converter
// and by the test suite.
var staticPropertyTable = map[staticPropertyKey]Signature{
	{"Transform", "position"}:   "UnityEngineTransform.__get_position__SystemVoid__UnityEngineVector3",
	{"Transform", "rotation"}:   "UnityEngineTransform.__get_rotation__SystemVoid__UnityEngineQuaternion",
	{"GameObject", "name"}:      "UnityEngineGameObject.__get_name__SystemVoid__SystemString",
	{"GameObject", "activeSelf"}: "UnityEngineGameObject.__get_active_self__SystemVoid__SystemBoolean",
}

var staticCtorTable = map[string]Signature{
	"Vector3": "__ctor____UnityEngineVector3",
	"Color":   "__ctor____UnityEngineColor",
}

var staticMethodTable = map[staticMethodKey]Signature{
	{"Mathf", "Abs"}:       "UnityEngineMathf.__Abs__SystemSingle__SystemSingle",
	{"Mathf", "Max"}:       "UnityEngineMathf.__Max__SystemSingle_SystemSingle__SystemSingle",
	{"Mathf", "Min"}:       "UnityEngineMathf.__Min__SystemSingle_SystemSingle__SystemSingle",
	{"Debug", "Log"}:       "UnityEngineDebug.__Log__SystemObject__SystemVoid",
	{"GameObject", "SetActive"}: "UnityEngineGameObject.__SetActive__SystemBoolean__SystemVoid",
}

// pureExterns names static-method signatures the constant-folder is
// allowed to evaluate at compile time (spec §4.4 pass 1, §8 scenario 5).
var pureExterns = map[staticMethodKey]func(args []interface{}) (interface{}, bool){
	{"Mathf", "Abs"}: func(args []interface{}) (interface{}, bool) {
		f, ok := toFloat(args, 0)
		if !ok {
			return nil, false
		}
		if f < 0 {
			f = -f
		}
		return f, true
	},
	{"Mathf", "Max"}: func(args []interface{}) (interface{}, bool) {
		a, ok1 := toFloat(args, 0)
		b, ok2 := toFloat(args, 1)
		if !ok1 || !ok2 {
			return nil, false
		}
		if a > b {
			return a, true
		}
		return b, true
	},
	{"Mathf", "Min"}: func(args []interface{}) (interface{}, bool) {
		a, ok1 := toFloat(args, 0)
		b, ok2 := toFloat(args, 1)
		if !ok1 || !ok2 {
			return nil, false
		}
		if a < b {
			return a, true
		}
		return b, true
	},
}

func toFloat(args []interface{}, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// ExternSignatureRegistry is the ESR (spec §2, §4.1).
type ExternSignatureRegistry struct {
	tmr *TypeMetadataRegistry
}

// NewExternSignatureRegistry builds an ESR backed by tmr for the
// dynamic stub-scan fallback path.
func NewExternSignatureRegistry(tmr *TypeMetadataRegistry) *ExternSignatureRegistry {
	return &ExternSignatureRegistry{tmr: tmr}
}

// Resolve implements the ESR contract (spec §4.1): static property
// table, static ctor table, static method table, then the TMR, then
// signature synthesis as a last resort. It returns ("", false) when no
// path resolves; the caller (TAC→VM lowering) decides whether that is
// fatal.
func (r *ExternSignatureRegistry) Resolve(
	typeName, member string, access MemberAccess,
	paramHostTypes []string, returnHostType string,
) (Signature, bool) {

	if access == AccessGetter || access == AccessSetter {
		if sig, ok := staticPropertyTable[staticPropertyKey{typeName, member}]; ok {
			return r.signatureForAccess(sig, access, member), true
		}
	}

	if member == "ctor" {
		if sig, ok := staticCtorTable[typeName]; ok {
			return sig, true
		}
	}

	if access == AccessMethod {
		if sig, ok := staticMethodTable[staticMethodKey{typeName, member}]; ok {
			return sig, true
		}
	}

	if r.tmr != nil && r.tmr.Has(typeName) {
		tm := r.tmr.types[typeName]
		var mm *MemberMetadata
		if paramHostTypes != nil {
			mm = tm.ResolveOverload(member, paramHostTypes)
		} else if ovl := tm.getOverloads(member); len(ovl) > 0 {
			mm = ovl[0]
		}
		if mm != nil {
			if mm.SignatureOverride != "" {
				return Signature(mm.SignatureOverride), true
			}
			return r.synthesize(mm.OwnerHostType, mm.Name, mm.ParamHostTypes, mm.ReturnHostType), true
		}
	}

	if paramHostTypes != nil && returnHostType != "" {
		return r.synthesize(hostTypeName(typeName), member, paramHostTypes, returnHostType), true
	}

	return "", false
}

// signatureForAccess returns base unchanged for every access kind:
// static-table entries are already accessor-shaped, so no get_X/set_X
// name is synthesized here (kept separate from synthesize so a direct
// static hit is returned verbatim).
func (r *ExternSignatureRegistry) signatureForAccess(base Signature, access MemberAccess, member string) Signature {
	s := string(base)
	if access == AccessGetter && !containsGetPrefix(member, s) {
		return base
	}
	return base
}

func containsGetPrefix(member, sig string) bool {
	return true // static table entries are already accessor-shaped.
}

// synthesize builds {Owner}.__{member}__{P1}_{P2}__{Return} (spec §6).
// Property access synthesizes get_X/set_X member names first.
func (r *ExternSignatureRegistry) synthesize(ownerHost, member string, paramHostTypes []string, returnHostType string) Signature {
	owner := sanitizeHostTypeName(ownerHost)
	params := sanitizeParamTypes(paramHostTypes)
	ret := sanitizeHostTypeName(returnHostType)
	return Signature(fmt.Sprintf("%s.__%s__%s__%s", owner, member, params, ret))
}

// SynthesizeGetter builds the get_X accessor signature for a property
// access (spec §4.1: "synthesize get_X / set_X method names").
func (r *ExternSignatureRegistry) SynthesizeGetter(ownerHost, property, returnHostType string) Signature {
	return r.synthesize(ownerHost, "get_"+property, nil, returnHostType)
}

// SynthesizeSetter builds the set_X accessor signature for a property
// assignment; the setter's single parameter is the value being stored.
func (r *ExternSignatureRegistry) SynthesizeSetter(ownerHost, property, valueHostType string) Signature {
	return r.synthesize(ownerHost, "set_"+property, []string{valueHostType}, "System.Void")
}

// SynthesizeCtor builds the "__ctor____{OwnerHost}" constructor
// signature shape named in spec §6.
func SynthesizeCtor(ownerHost string) Signature {
	return Signature("__ctor____" + sanitizeHostTypeName(ownerHost))
}

// LookupPureExtern returns the compile-time evaluator for a static
// method, if the constant-folder is allowed to fold calls to it.
func LookupPureExtern(typeName, member string) (func(args []interface{}) (interface{}, bool), bool) {
	fn, ok := pureExterns[staticMethodKey{typeName, member}]
	return fn, ok
}
