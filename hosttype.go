// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "strings"

// builtinHostTypes maps a source-visible builtin type name to its
// canonical dotted host type name (spec §3: "Mapping from source names
// is total for known builtins; unknown names are preserved verbatim").
var builtinHostTypes = map[string]string{
	"void":    "System.Void",
	"bool":    "System.Boolean",
	"int":     "System.Int32",
	"uint":    "System.UInt32",
	"long":    "System.Int64",
	"ulong":   "System.UInt64",
	"float":   "System.Single",
	"double":  "System.Double",
	"string":  "System.String",
	"char":    "System.Char",
	"byte":    "System.Byte",
	"sbyte":   "System.SByte",
	"object":  "System.Object",
	"Vector3": "UnityEngine.Vector3",
	"Vector2": "UnityEngine.Vector2",
	"Color":   "UnityEngine.Color",
	"Quaternion": "UnityEngine.Quaternion",
	"GameObject": "UnityEngine.GameObject",
	"Transform":  "UnityEngine.Transform",
}

// hostTypeName returns the canonical host type name for a source-visible
// type name. The mapping is total for builtins; unrecognized names
// (user classes, interfaces) are preserved verbatim, matching the TMR's
// role of registering those at stub-scan time.
func hostTypeName(sourceName string) string {
	if host, ok := builtinHostTypes[sourceName]; ok {
		return host
	}
	return sourceName
}

// sanitizeHostTypeName removes dots, maps array markers "[]" to "Array"
// and reference markers "&" to "Ref" — the exact sanitizer used to
// build synthesized extern signatures (spec §4.1, §6). "System." is
// kept rather than stripped: every hand-authored static-table entry
// (e.g. "UnityEngineMathf.__Abs__SystemSingle__SystemSingle") and the
// literal signature example of spec §8 keep it, so the synthesizer
// must match. Grounded on helper.go's DecodeUTF16String-adjacent
// string-shaping helpers in the teacher, generalized to type names
// instead of raw bytes.
func sanitizeHostTypeName(name string) string {
	s := name
	s = strings.ReplaceAll(s, "[]", "Array")
	s = strings.ReplaceAll(s, "&", "Ref")
	s = strings.ReplaceAll(s, ".", "")
	return s
}

// sanitizeParamTypes sanitizes and joins a parameter type list with "_",
// the ParamTypes component of the extern signature grammar.
func sanitizeParamTypes(paramHostTypes []string) string {
	if len(paramHostTypes) == 0 {
		return ""
	}
	parts := make([]string, len(paramHostTypes))
	for i, p := range paramHostTypes {
		parts[i] = sanitizeHostTypeName(p)
	}
	return strings.Join(parts, "_")
}
