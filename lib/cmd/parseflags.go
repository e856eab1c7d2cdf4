// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

// FlagSet is the subset of *flag.FlagSet used by ParseFlags.
type FlagSet interface {
	Init(string, flag.ErrorHandling)
	Args() []string
	NArg() int
	Parse([]string) error
	SetOutput(io.Writer)
	PrintDefaults()
}

// ParseFlags calls f.Parse(args) and reports usage errors and -help
// output on stderr, prefixed with prog.
//
// positional describes the accepted positional arguments for the
// usage line "Usage: {prog} [options] {positional}". If it is empty,
// any positional argument is a usage error.
//
// ok is false if the program should exit now, in which case exitCode
// is 0 after -help and 2 after a usage error.
func ParseFlags(f FlagSet, prog string, args []string, positional string, stderr io.Writer) (ok bool, exitCode int) {
	f.Init(prog, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	err := f.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		if f, ok := f.(*flag.FlagSet); ok && f.Usage != nil {
			f.SetOutput(stderr)
			f.Usage()
			return false, 0
		}
		fmt.Fprintf(stderr, "Usage: %s [options] %s\n\nOptions:\n", prog, positional)
		f.SetOutput(stderr)
		f.PrintDefaults()
		return false, 0
	} else if err != nil {
		fmt.Fprintf(stderr, "%s: %s (try -help)\n", prog, err)
		return false, 2
	}
	if f.NArg() > 0 && positional == "" {
		fmt.Fprintf(stderr, "%s: unexpected arguments %q (try -help)\n", prog, f.Args())
		return false, 2
	}
	return true, 0
}
