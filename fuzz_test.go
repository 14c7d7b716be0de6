// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func TestFuzzRejectsGarbageInput(t *testing.T) {
	if got := Fuzz([]byte("{{{ not a class at all ]]]")); got != 0 {
		t.Fatalf("Fuzz(garbage) = %d, want 0", got)
	}
}

func TestFuzzAcceptsEmptyInput(t *testing.T) {
	// An empty module has no classes to convert or optimize, so it
	// should parse cleanly and walk the pipeline as a no-op.
	if got := Fuzz(nil); got != 1 {
		t.Fatalf("Fuzz(nil) = %d, want 1", got)
	}
}
