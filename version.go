// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "golang.org/x/mod/semver"

// Version is this module's own release version, independent of
// AssemblerFormatVersion (the output grammar's version, see
// assembler.go). Overridden at link time via -ldflags in release
// builds; the zero value below is the development default.
var Version = "v0.0.0-dev"

// ValidVersion reports whether v parses as valid semver.
func ValidVersion(v string) bool {
	return semver.IsValid(v)
}
