// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func TestComputeTypeIdIsDeterministic(t *testing.T) {
	a := computeTypeId("Player")
	b := computeTypeId("Player")
	if a != b {
		t.Fatalf("computeTypeId(\"Player\") not deterministic: %x vs %x", a, b)
	}
}

func TestComputeTypeIdDiffersByName(t *testing.T) {
	a := computeTypeId("Player")
	b := computeTypeId("Enemy")
	if a == b {
		t.Fatalf("computeTypeId(\"Player\") == computeTypeId(\"Enemy\") == %x, want distinct hashes", a)
	}
}

func TestComputeTypeIdEmptyStringIsOffsetBasis(t *testing.T) {
	if got := computeTypeId(""); got != fnvOffsetBasis {
		t.Fatalf("computeTypeId(\"\") = %x, want the FNV-1a offset basis %x", got, fnvOffsetBasis)
	}
}

func TestComputeTypeIdMatchesFNV1a64Reference(t *testing.T) {
	// Reference vector for the 64-bit FNV-1a of "a" (common FNV-1a
	// reference implementations agree on this value).
	const want uint64 = 0xaf63dc4c8601ec8c
	if got := computeTypeId("a"); got != want {
		t.Fatalf("computeTypeId(\"a\") = %#x, want %#x", got, want)
	}
}
