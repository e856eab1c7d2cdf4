// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

// Package cmdtest provides tools for testing command line tools.
package cmdtest

import (
	"bytes"
	"io"
	"os"
	"strings"

	"git.skymind.io/skil-go.git/lib/cmd"
	check "gopkg.in/check.v1"
)

// LeakCheck tests for output being leaked to os.Stdout and os.Stderr
// that should be sent elsewhere (e.g., the stdout and stderr streams
// passed to a cmd.RunFunc).
//
// It redirects os.Stdout and os.Stderr to a tempfile, and returns a
// func, which the caller is expected to defer, that restores os.* and
// checks that the tempfile is empty.
//
// Example:
//
//	func (s *Suite) TestSomething(c *check.C) {
//		defer cmdtest.LeakCheck(c)()
//		// ... do things that shouldn't print to os.Stderr or os.Stdout
//	}
func LeakCheck(c *check.C) func() {
	tmpfiles := map[string]*os.File{"stdout": nil, "stderr": nil}
	for i := range tmpfiles {
		var err error
		tmpfiles[i], err = os.CreateTemp("", "")
		c.Assert(err, check.IsNil)
		err = os.Remove(tmpfiles[i].Name())
		c.Assert(err, check.IsNil)
	}

	stdout, stderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = tmpfiles["stdout"], tmpfiles["stderr"]
	return func() {
		os.Stdout, os.Stderr = stdout, stderr

		for i, tmpfile := range tmpfiles {
			_, err := tmpfile.Seek(0, io.SeekStart)
			c.Assert(err, check.IsNil)
			leaked, err := io.ReadAll(tmpfile)
			c.Assert(err, check.IsNil)
			c.Check(string(leaked), check.Equals, "", check.Commentf("leaked to os.%s", i))
			tmpfile.Close()
		}
	}
}

// Result is the outcome of a command run by Run.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Run invokes fn with the given stdin and args, checks that it writes
// nothing to os.Stdout or os.Stderr directly, and logs and returns
// what it wrote to its own stdout and stderr.
func Run(c *check.C, fn cmd.RunFunc, stdin string, prog string, args ...string) Result {
	defer LeakCheck(c)()
	var stdout, stderr bytes.Buffer
	code := fn(prog, args, strings.NewReader(stdin), &stdout, &stderr)
	c.Logf("%s %q => %d\nstdout: %s\nstderr: %s", prog, args, code, stdout.String(), stderr.String())
	return Result{Code: code, Stdout: stdout.String(), Stderr: stderr.String()}
}
