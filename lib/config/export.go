// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"git.skymind.io/skil-go.git/sdk/go/skil"
	"github.com/ghodss/yaml"
)

// Dump writes cfg to w as YAML, using the same keys as the config
// file, so the output can be loaded again. Secrets (password,
// auth_token) are omitted.
func Dump(w io.Writer, cfg *skil.Config) error {
	m := toMap(cfg)
	if err := redactUnsafe(m, ""); err != nil {
		return err
	}
	buf, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func toMap(cfg *skil.Config) map[string]interface{} {
	return map[string]interface{}{
		"host":       cfg.Host,
		"scheme":     cfg.Scheme,
		"user_id":    cfg.UserID,
		"password":   cfg.Password,
		"auth_token": cfg.AuthToken,
		"insecure":   cfg.Insecure,
		"timeout":    cfg.Timeout.String(),
		"retries":    cfg.Retries,
		"poll": map[string]interface{}{
			"interval":     cfg.Poll.Interval.String(),
			"settle_delay": cfg.Poll.SettleDelay.String(),
			"max_attempts": cfg.Poll.MaxAttempts,
		},
		"log": map[string]interface{}{
			"level":  cfg.Log.Level,
			"format": cfg.Log.Format,
		},
	}
}

// whitelist classifies config keys as safe/unsafe to print. Every key
// must be listed explicitly, along with its parent keys, or have an
// ancestor listed as false. Otherwise, it is a bug which should be
// caught by tests.
var whitelist = map[string]bool{
	"auth_token":        false,
	"host":              true,
	"insecure":          true,
	"log":               true,
	"log.format":        true,
	"log.level":         true,
	"password":          false,
	"poll":              true,
	"poll.interval":     true,
	"poll.max_attempts": true,
	"poll.settle_delay": true,
	"retries":           true,
	"scheme":            true,
	"timeout":           true,
	"user_id":           true,
}

func redactUnsafe(m map[string]interface{}, prefix string) error {
	var errs []string
	for k, v := range m {
		safe, ok := whitelist[prefix+k]
		if !ok {
			errs = append(errs, fmt.Sprintf("config bug: key %q not in whitelist map", prefix+k))
			continue
		}
		if !safe {
			delete(m, k)
			continue
		}
		if v, ok := v.(map[string]interface{}); ok {
			if err := redactUnsafe(v, prefix+k+"."); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return errors.New(strings.Join(errs, "\n"))
	}
	return nil
}
