// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

// Package version reports the SDK release the binary was built from.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version will get assigned the release number at compile
	// time with -ldflags "-X git.skymind.io/skil-go.git/sdk/go/version.Version=..."
	Version string
)

// GetVersion returns the release number if it was assigned by the
// linker, or "dev" otherwise.
func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "dev"
}

// UserAgent is the User-Agent header sent by SDK clients.
func UserAgent() string {
	return fmt.Sprintf("skil-go-sdk/%s (%s)", GetVersion(), runtime.Version())
}
