// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"path/filepath"
)

const appName = "reachlogic"

// Dir returns the XDG config directory for reachlogic. Checks
// XDG_CONFIG_HOME first, falls back to ~/.config.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// Resolve returns explicit when set, otherwise Dir()/config.yaml if that
// file exists, otherwise "".
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	path := filepath.Join(Dir(), "config.yaml")
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}
