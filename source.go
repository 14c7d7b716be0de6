// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// SourceFile is one memory-mapped input file, released by the caller
// via Close once its Module has been parsed (spec §5: "File handles
// are opened and released per read").
type SourceFile struct {
	Path string
	f    *os.File
	m    mmap.MMap
}

// openSourceFile maps path read-only, mirroring pe.New's mmap.Map call
// over the binary under inspection.
func openSourceFile(path string) (*SourceFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		// mmap.Map rejects zero-length files; treat an empty source file
		// as an empty in-memory buffer instead of failing the whole run.
		f.Close()
		return &SourceFile{Path: path}, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &SourceFile{Path: path, f: f, m: m}, nil
}

// Text returns the mapped file contents as a string.
func (s *SourceFile) Text() string {
	if s.m == nil {
		return ""
	}
	return string(s.m)
}

// Close unmaps and releases the file handle. Safe to call on an
// empty-file SourceFile with no backing mapping.
func (s *SourceFile) Close() error {
	var mErr, fErr error
	if s.m != nil {
		mErr = s.m.Unmap()
	}
	if s.f != nil {
		fErr = s.f.Close()
	}
	if mErr != nil {
		return mErr
	}
	return fErr
}

// LoadModule opens path, parses it into a Module, and releases the file
// handle before returning — one scoped acquire-parse-release cycle per
// source file (spec §5).
func LoadModule(path string, errs *ErrorCollector) (*Module, error) {
	sf, err := openSourceFile(path)
	if err != nil {
		return nil, err
	}
	defer sf.Close()
	return ParseModule(path, sf.Text(), errs), nil
}

// LoadModules loads every path in order, in the "already discovered and
// topologically ordered" ingress contract (spec §6): the orchestrator
// receives paths pre-ordered and never re-derives a dependency graph
// itself.
func LoadModules(paths []string, errs *ErrorCollector) ([]*Module, error) {
	mods := make([]*Module, 0, len(paths))
	for _, p := range paths {
		m, err := LoadModule(p, errs)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, nil
}
