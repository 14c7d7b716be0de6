// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// Fuzz feeds data through the parser, the converter, and the full
// optimizer pipeline, the same single-file smoke path fuzz.go runs
// over pe.NewBytes/f.Parse.
func Fuzz(data []byte) int {
	errs := NewErrorCollector()
	mod := ParseModule("fuzz.input", string(data), errs)
	if errs.HasErrors() {
		return 0
	}

	classes := NewClassRegistry()
	for _, c := range mod.Classes {
		PrepareClass(c)
		classes.Add(c)
	}

	tmr := NewTypeMetadataRegistry()
	esr := NewExternSignatureRegistry(tmr)
	conv := NewConverter(classes, esr)

	for _, name := range classes.Names() {
		c := classes.Get(name)
		fn := conv.ConvertConstructor(c)
		Optimize(fn)
		for _, m := range c.Methods {
			mfn := conv.ConvertMethod(c, &m)
			Optimize(mfn)
		}
	}
	return 1
}
