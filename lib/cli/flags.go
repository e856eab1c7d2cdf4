// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"git.skymind.io/skil-go.git/lib/cmd"
	"git.skymind.io/skil-go.git/lib/config"
	"git.skymind.io/skil-go.git/sdk/go/ctxlog"
	"git.skymind.io/skil-go.git/sdk/go/skil"
	"rsc.io/getopt"
)

// CommonFlagValues are the flags accepted by every subcommand.
type CommonFlagValues struct {
	Format  string
	Verbose bool

	loader *config.Loader
	stderr io.Writer
}

// CommonFlagSet returns a flag set with the common flags (and their
// one-letter aliases) already defined. Subcommands add their own
// flags before parsing.
func CommonFlagSet(stdin io.Reader, stderr io.Writer) (*getopt.FlagSet, *CommonFlagValues) {
	values := &CommonFlagValues{Format: "json", stderr: stderr}
	flags := getopt.NewFlagSet("", flag.ContinueOnError)
	flags.StringVar(&values.Format, "format", values.Format, "Output format: json, yaml, or id")
	flags.Alias("f", "format")
	flags.BoolVar(&values.Verbose, "verbose", false, "Log debug messages on stderr")
	flags.Alias("v", "verbose")
	values.loader = config.NewLoader(stdin, ctxlog.New(stderr, "text", "info"))
	values.loader.SetupFlags(flags.FlagSet)
	flags.Alias("c", "config")
	return flags, values
}

var _ cmd.FlagSet = (*getopt.FlagSet)(nil)

// Client loads the client config and returns a client, and a context
// carrying a logger configured by the config's Log section.
func (cf *CommonFlagValues) Client() (context.Context, *skil.Client, error) {
	cfg, err := cf.loader.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if cf.Verbose {
		level = "debug"
	}
	logger := ctxlog.New(cf.stderr, cfg.Log.Format, level)
	client, err := skil.NewClientFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return ctxlog.Context(context.Background(), logger), client, nil
}

func (cf *CommonFlagValues) checkFormat() error {
	switch cf.Format {
	case "json", "yaml", "id":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (try json, yaml, or id)", cf.Format)
	}
}
