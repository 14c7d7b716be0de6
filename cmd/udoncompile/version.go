// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saferwall/udonc"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the compiler and assembly format versions",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("udoncompile %s (assembly format %s)\n", udonc.Version, udonc.AssemblerFormatVersion)
		},
	}
}
