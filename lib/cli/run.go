// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"git.skymind.io/skil-go.git/lib/cmd"
	"git.skymind.io/skil-go.git/sdk/go/skil"
	"rsc.io/getopt"
)

// A result is what a subcommand prints on success: the created or
// fetched object, and its ID for "-format id".
type result struct {
	ID  string
	Obj interface{}
}

// apiCommand builds a cmd.RunFunc from a flag setup function and a
// body that talks to the server. nargs is the number of positional
// arguments required (-1 for any number), described by positional in
// the usage message.
func apiCommand(positional string, nargs int, setup func(*getopt.FlagSet), body func(ctx context.Context, client *skil.Client, args []string) (result, error)) cmd.RunFunc {
	return func(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
		out := newCommand(stdout, stderr)
		flags, common := CommonFlagSet(stdin, stderr)
		if setup != nil {
			setup(flags)
		}
		if ok, code := cmd.ParseFlags(flags, prog, args, positional, stderr); !ok {
			return code
		}
		if nargs >= 0 && flags.NArg() != nargs {
			fmt.Fprintf(stderr, "Usage: %s [options] %s (try -help)\n", prog, positional)
			return 2
		}
		if out.err = common.checkFormat(); out.err != nil {
			return out.exit()
		}
		ctx, client, err := common.Client()
		if err != nil {
			out.err = err
			return out.exit()
		}
		res, err := body(ctx, client, flags.Args())
		if err != nil {
			out.err = err
			return out.exit()
		}
		return out.emit(common.Format, res.ID, res.Obj)
	}
}

// required returns an error naming the first (alphabetically) flag
// in flags whose value is empty.
func required(flags map[string]string) error {
	var missing []string
	for name, value := range flags {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("-%s is required", missing[0])
}
