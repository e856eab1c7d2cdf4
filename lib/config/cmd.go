// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"flag"
	"fmt"
	"io"

	"git.skymind.io/skil-go.git/lib/cmd"
	"git.skymind.io/skil-go.git/sdk/go/ctxlog"
)

var _ cmd.RunFunc = DumpCommand

// DumpCommand prints the effective config (defaults, file and
// environment merged) without secrets.
func DumpCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	loader := NewLoader(stdin, ctxlog.New(stderr, "text", "info"))
	loader.SetupFlags(flags)
	if ok, code := cmd.ParseFlags(flags, prog, args, "", stderr); !ok {
		return code
	}
	cfg, err := loader.Load()
	if err != nil {
		return 1
	}
	if err = Dump(stdout, cfg); err != nil {
		return 1
	}
	return 0
}

// DumpDefaultsCommand prints the documented default config file.
func DumpDefaultsCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	if ok, code := cmd.ParseFlags(flags, prog, args, "", stderr); !ok {
		return code
	}
	if _, err := stdout.Write(DefaultYAML); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

// CheckCommand loads the config and exits non-zero if it cannot be
// loaded or contains keys that would be ignored.
func CheckCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	log := &plainLogger{w: stderr}
	loader := NewLoader(stdin, log)
	loader.SetupFlags(flags)
	if ok, code := cmd.ParseFlags(flags, prog, args, "", stderr); !ok {
		return code
	}
	if _, err := loader.Load(); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	if log.used {
		return 1
	}
	return 0
}

type plainLogger struct {
	w    io.Writer
	used bool
}

func (pl *plainLogger) Warnf(format string, args ...interface{}) {
	pl.used = true
	fmt.Fprintf(pl.w, format+"\n", args...)
}
