// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package config

import _ "embed"

// DefaultYAML is the documented default configuration. Load merges
// it under the site config, and keys outside it are reported as
// unknown.
//
//go:embed config.default.yml
var DefaultYAML []byte
