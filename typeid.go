// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// FNV-1a 64-bit constants (spec §3 TypeId).
const (
	fnvOffsetBasis uint64 = 0xcbf29ce484222325
	fnvPrime       uint64 = 0x100000001b3
)

// computeTypeId hashes name with 64-bit FNV-1a, folded (masked) to 64
// bits — which for the 64-bit variant is simply the raw accumulator,
// the fold step existing so a future 32-bit reflection ID can reuse the
// same accumulator.
func computeTypeId(name string) uint64 {
	h := fnvOffsetBasis
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= fnvPrime
	}
	return foldTypeId(h)
}

// foldTypeId masks the accumulator to 64 bits. On a 64-bit accumulator
// this is the identity; it exists to mirror the fold step used for
// narrower reflection IDs derived from the same hash (spec §3).
func foldTypeId(h uint64) uint64 {
	return h & 0xFFFFFFFFFFFFFFFF
}
