// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"git.skymind.io/skil-go.git/sdk/go/skil"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultConfigFile = "/etc/skil/config.yml"

	// EnvPrefix is the prefix of environment variables that
	// override config entries. Nested keys are separated by a
	// double underscore: SKIL__POLL__INTERVAL=1s.
	EnvPrefix = "SKIL__"
	envDelim  = "__"
)

type logger interface {
	Warnf(string, ...interface{})
}

// A Loader reads a skil.Config from the embedded defaults, a YAML
// file, and SKIL__* environment variables, in that order of
// increasing precedence.
type Loader struct {
	Logger logger

	// Config file path. "-" means stdin. A missing file is not an
	// error.
	Path string
	// Ignore SKIL__* environment variables.
	SkipEnv bool

	stdin io.Reader
}

// NewLoader returns a Loader that reads the default config file
// location, and stdin if Path is set to "-".
func NewLoader(stdin io.Reader, log logger) *Loader {
	return &Loader{Logger: log, Path: DefaultConfigFile, stdin: stdin}
}

// SetupFlags adds a -config flag to flagset.
func (ldr *Loader) SetupFlags(flagset *flag.FlagSet) {
	flagset.StringVar(&ldr.Path, "config", ldr.Path, "Client configuration `file` (- for stdin)")
}

// Load returns the merged config, with skil.Config.ApplyDefaults
// applied to anything still unset.
func (ldr *Loader) Load() (*skil.Config, error) {
	k := koanf.New(".")
	if err := k.Load(bytesProvider(DefaultYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	known := map[string]bool{}
	for _, key := range k.Keys() {
		known[key] = true
	}

	switch ldr.Path {
	case "":
	case "-":
		if ldr.stdin == nil {
			return nil, errors.New("config path is \"-\" but there is no stdin")
		}
		buf, err := io.ReadAll(ldr.stdin)
		if err != nil {
			return nil, err
		}
		if err := k.Load(bytesProvider(buf), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config from stdin: %w", err)
		}
	default:
		if err := k.Load(file.Provider(ldr.Path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", ldr.Path, err)
		}
	}

	if !ldr.SkipEnv {
		if err := k.Load(env.Provider(EnvPrefix, envDelim, envKey), nil); err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
	}
	ldr.checkUnknownKeys(k, known)

	var cfg skil.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (ldr *Loader) checkUnknownKeys(k *koanf.Koanf, known map[string]bool) {
	if ldr.Logger == nil {
		return
	}
	var unknown []string
	for _, key := range k.Keys() {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		ldr.Logger.Warnf("ignoring unknown config key %q", key)
	}
}

// envKey maps SKIL__POLL__SETTLE_DELAY to poll__settle_delay. The env
// provider then splits the result on envDelim.
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// bytesProvider is a koanf.Provider for an in-memory YAML document.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) {
	return b, nil
}

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytesProvider does not support Read()")
}
