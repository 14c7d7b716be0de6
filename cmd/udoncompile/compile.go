// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saferwall/udonc"
	"github.com/saferwall/udonc/log"
)

func newCompileCmd() *cobra.Command {
	var (
		outDir         string
		optimize       bool
		emitReflection bool
		excludeDirs    []string
		allowCircular  bool
		extended       bool
		heapBudget     int
	)

	cmd := &cobra.Command{
		Use:   "compile <file> [file...]",
		Short: "Compile source files into assembly, one file per entry point",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args, outDir, &udonc.Options{
				Optimize:       optimize,
				EmitReflection: emitReflection,
				ExcludeDirs:    excludeDirs,
				AllowCircular:  allowCircular,
				Extension:      extensionFromFlag(extended),
				HeapBudget:     heapBudget,
				Logger:         log.NewStdLogger(os.Stderr),
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory for assembly files")
	cmd.Flags().BoolVar(&optimize, "optimize", true, "run the TAC optimizer pipeline")
	cmd.Flags().BoolVar(&emitReflection, "emit-reflection", false, "append __refl_typeid/__refl_typename/__refl_typeids")
	cmd.Flags().StringSliceVar(&excludeDirs, "exclude", nil, "directories to exclude from compilation")
	cmd.Flags().BoolVar(&allowCircular, "allow-circular", false, "permit cyclic import graphs")
	cmd.Flags().BoolVar(&extended, "extended", false, "use the extended (1,048,576-entry) heap budget")
	cmd.Flags().IntVar(&heapBudget, "heap-budget", 0, "override the default heap budget")

	return cmd
}

func extensionFromFlag(extended bool) udonc.AssemblyExtension {
	if extended {
		return udonc.ExtendedAssembly
	}
	return udonc.ShortAssembly
}

func runCompile(paths []string, outDir string, opts *udonc.Options) error {
	errs := udonc.NewErrorCollector()
	modules, err := udonc.LoadModules(paths, errs)
	if err != nil {
		return fmt.Errorf("loading sources: %w", err)
	}

	tmr := udonc.NewTypeMetadataRegistry()
	esr := udonc.NewExternSignatureRegistry(tmr)
	orch := udonc.NewOrchestrator(esr, opts)

	results, err := orch.Compile(modules, errs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, r := range results {
		if r.Budget != nil {
			fmt.Fprintf(os.Stderr, "warning: %s exceeds heap budget: %d/%d entries\n",
				r.Class, r.Budget.TotalHeap, r.Budget.Limit)
		}
		outPath := filepath.Join(outDir, r.Class+".uasm")
		if err := os.WriteFile(outPath, []byte(r.Assembly), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		fmt.Println("wrote", outPath)
	}
	return nil
}
