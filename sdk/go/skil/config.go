// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import "time"

const (
	DefaultHost         = "localhost:9008"
	DefaultUserID       = "admin"
	DefaultPassword     = "admin"
	DefaultTimeout      = 5 * time.Minute
	DefaultPollInterval = 5 * time.Second
	DefaultSettleDelay  = 15 * time.Second
)

// Config holds everything needed to talk to a SKIL server. It is
// normally populated by a lib/config Loader.
type Config struct {
	Host      string        `json:"Host" koanf:"host"`
	Scheme    string        `json:"Scheme" koanf:"scheme"`
	UserID    string        `json:"UserID" koanf:"user_id"`
	Password  string        `json:"Password" koanf:"password"`
	AuthToken string        `json:"AuthToken,omitempty" koanf:"auth_token"`
	Insecure  bool          `json:"Insecure" koanf:"insecure"`
	Timeout   time.Duration `json:"Timeout" koanf:"timeout"`
	Retries   int           `json:"Retries" koanf:"retries"`

	Poll PollConfig `json:"Poll" koanf:"poll"`
	Log  LogConfig  `json:"Log" koanf:"log"`
}

// PollConfig controls how Start and Stop wait for a model to reach
// the requested state.
type PollConfig struct {
	Interval    time.Duration `json:"Interval" koanf:"interval"`
	SettleDelay time.Duration `json:"SettleDelay" koanf:"settle_delay"`
	// Zero means no limit; the wait is then bounded only by the
	// caller's context.
	MaxAttempts int `json:"MaxAttempts" koanf:"max_attempts"`
}

type LogConfig struct {
	Level  string `json:"Level" koanf:"level"`
	Format string `json:"Format" koanf:"format"`
}

// ApplyDefaults fills zero-valued fields with defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.UserID == "" && cfg.AuthToken == "" {
		cfg.UserID = DefaultUserID
		if cfg.Password == "" {
			cfg.Password = DefaultPassword
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = DefaultPollInterval
	}
	if cfg.Poll.SettleDelay == 0 {
		cfg.Poll.SettleDelay = DefaultSettleDelay
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
