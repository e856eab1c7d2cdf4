// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghodss/yaml"
)

// command holds what every subcommand needs while it runs: where to
// write its result, and the error (if any) to report on exit.
type command struct {
	stdout io.Writer
	stderr io.Writer
	err    error
}

func newCommand(stdout, stderr io.Writer) *command {
	return &command{stdout: stdout, stderr: stderr}
}

// exit reports cmd.err, if any, and returns the corresponding exit
// code.
func (cmd *command) exit() int {
	if cmd.err == nil {
		return 0
	}
	fmt.Fprintf(cmd.stderr, "%s\n", cmd.err)
	return 1
}

// emit writes obj to stdout in the given format. With format "id",
// only id is printed.
func (cmd *command) emit(format, id string, obj interface{}) int {
	switch format {
	case "yaml":
		var buf []byte
		buf, cmd.err = yaml.Marshal(obj)
		if cmd.err == nil {
			_, cmd.err = cmd.stdout.Write(buf)
		}
	case "id":
		_, cmd.err = fmt.Fprintln(cmd.stdout, id)
	default:
		enc := json.NewEncoder(cmd.stdout)
		enc.SetIndent("", "  ")
		cmd.err = enc.Encode(obj)
	}
	if cmd.err != nil {
		cmd.err = fmt.Errorf("encoding: %w", cmd.err)
	}
	return cmd.exit()
}
