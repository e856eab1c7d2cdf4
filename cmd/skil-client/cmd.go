// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"git.skymind.io/skil-go.git/lib/cli"
	"git.skymind.io/skil-go.git/lib/cmd"
	"git.skymind.io/skil-go.git/lib/config"
	"git.skymind.io/skil-go.git/sdk/go/version"
)

var (
	handler = cmd.Multi(map[string]cmd.RunFunc{
		"version":   cmd.Version(version.GetVersion()),
		"-version":  cmd.Version(version.GetVersion()),
		"--version": cmd.Version(version.GetVersion()),

		"config-check":    config.CheckCommand,
		"config-dump":     config.DumpCommand,
		"config-defaults": config.DumpDefaultsCommand,

		"workspace":  cli.Workspace,
		"experiment": cli.Experiment,
		"deployment": cli.Deployment,
		"resource":   cli.Resource,

		"deploy":   cli.Deploy,
		"start":    cli.Start,
		"stop":     cli.Stop,
		"undeploy": cli.Undeploy,

		"predict":   cli.Predict,
		"transform": cli.Transform,
		"detect":    cli.Detect,
	})
)

// Common flags may be given before the subcommand: "skil-client
// -format yaml deployment list".
var run = cmd.WithLateSubcommand(handler, []string{"config", "c", "format", "f"}, []string{"verbose", "v"})

func main() {
	os.Exit(run(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
