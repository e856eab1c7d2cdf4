// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"

	check "gopkg.in/check.v1"
)

func (s *LoadSuite) TestDumpCommand(c *check.C) {
	var stdout, stderr bytes.Buffer
	in := bytes.NewBufferString("host: dumped:9008\npassword: topsecret\n")
	code := DumpCommand("skil-client config-dump", []string{"-config", "-"}, in, &stdout, &stderr)
	c.Check(code, check.Equals, 0)
	c.Check(stderr.String(), check.Equals, "")
	c.Check(stdout.String(), check.Matches, `(?ms).*host: dumped:9008\n.*`)
	c.Check(stdout.String(), check.Not(check.Matches), `(?ms).*topsecret.*`)
}

func (s *LoadSuite) TestDumpCommandBadFlag(c *check.C) {
	var stdout, stderr bytes.Buffer
	code := DumpCommand("skil-client config-dump", []string{"-bogus"}, nil, &stdout, &stderr)
	c.Check(code, check.Equals, 2)
	c.Check(stdout.String(), check.Equals, "")
}

func (s *LoadSuite) TestDumpDefaultsCommand(c *check.C) {
	var stdout, stderr bytes.Buffer
	code := DumpDefaultsCommand("skil-client config-defaults", nil, nil, &stdout, &stderr)
	c.Check(code, check.Equals, 0)
	c.Check(stdout.Bytes(), check.DeepEquals, DefaultYAML)
}

func (s *LoadSuite) TestCheckCommand(c *check.C) {
	fn := filepath.Join(c.MkDir(), "config.yml")
	c.Assert(os.WriteFile(fn, []byte("host: ok:9008\n"), 0644), check.IsNil)

	var stdout, stderr bytes.Buffer
	code := CheckCommand("skil-client config-check", []string{"-config", fn}, nil, &stdout, &stderr)
	c.Check(code, check.Equals, 0)
	c.Check(stderr.String(), check.Equals, "")

	c.Assert(os.WriteFile(fn, []byte("host: ok:9008\nsettle_delay: 1s\n"), 0644), check.IsNil)
	stderr.Reset()
	code = CheckCommand("skil-client config-check", []string{"-config", fn}, nil, &stdout, &stderr)
	c.Check(code, check.Equals, 1)
	c.Check(stderr.String(), check.Equals, "ignoring unknown config key \"settle_delay\"\n")

	c.Assert(os.WriteFile(fn, []byte("host: [\n"), 0644), check.IsNil)
	stderr.Reset()
	code = CheckCommand("skil-client config-check", []string{"-config", fn}, nil, &stdout, &stderr)
	c.Check(code, check.Equals, 1)
	c.Check(stderr.String(), check.Matches, `loading .*config.yml: .*\n`)
}
