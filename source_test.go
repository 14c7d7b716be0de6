// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

func TestOpenSourceFileEmptyFileHasNoMapping(t *testing.T) {
	path := writeTempSource(t, "empty.src", "")
	sf, err := openSourceFile(path)
	if err != nil {
		t.Fatalf("openSourceFile(empty) error: %v", err)
	}
	defer sf.Close()
	if sf.Text() != "" {
		t.Fatalf("Text() = %q, want empty", sf.Text())
	}
	if err := sf.Close(); err != nil {
		t.Fatalf("Close() on an unmapped empty SourceFile: %v", err)
	}
}

func TestOpenSourceFileMapsNonEmptyContent(t *testing.T) {
	path := writeTempSource(t, "nonempty.src", "class Foo {}")
	sf, err := openSourceFile(path)
	if err != nil {
		t.Fatalf("openSourceFile error: %v", err)
	}
	defer sf.Close()
	if sf.Text() != "class Foo {}" {
		t.Fatalf("Text() = %q, want the file contents", sf.Text())
	}
}

func TestLoadModuleParsesAndReleasesHandle(t *testing.T) {
	path := writeTempSource(t, "empty_module.src", "")
	errs := NewErrorCollector()
	mod, err := LoadModule(path, errs)
	if err != nil {
		t.Fatalf("LoadModule error: %v", err)
	}
	if mod == nil {
		t.Fatal("LoadModule returned a nil Module")
	}
}

func TestLoadModulesPropagatesOpenError(t *testing.T) {
	errs := NewErrorCollector()
	_, err := LoadModules([]string{filepath.Join(t.TempDir(), "does-not-exist.src")}, errs)
	if err == nil {
		t.Fatal("LoadModules should surface an error for a missing file")
	}
}
