// Package config resolves RustyTerm's configuration directory and the
// paths of its two optional override files (security policy,
// colorscheme). Config file loading itself is an external collaborator
// per spec.md §1 ("not specified in depth"); this file implements the
// directory resolution (colorscheme.go loads the colorscheme overrides),
// following the teacher's
// internal/config/config.go InitConfigDir (same XDG-aware search order
// and go-homedir dependency), renamed from THICC_CONFIG_HOME to
// RUSTYTERM_CONFIG_HOME.
package config

import (
	"os"
	"path/filepath"

	"github.com/go-errors/errors"
	homedir "github.com/mitchellh/go-homedir"
)

// Dir is the resolved configuration directory, set by InitConfigDir.
var Dir string

// InitConfigDir finds RustyTerm's configuration directory: an explicit
// override, then $RUSTYTERM_CONFIG_HOME, then $XDG_CONFIG_HOME/rustyterm,
// then ~/.config/rustyterm. An explicit override must already exist; any
// other resolved directory is created if missing.
func InitConfigDir(override string) error {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return errors.Errorf("config: directory %q does not exist: %w", override, err)
		}
		Dir = override
		return nil
	}

	home := os.Getenv("RUSTYTERM_CONFIG_HOME")
	if home == "" {
		xdg := os.Getenv("XDG_CONFIG_HOME")
		if xdg == "" {
			hd, err := homedir.Dir()
			if err != nil {
				return errors.Errorf("config: locate home directory: %w", err)
			}
			xdg = filepath.Join(hd, ".config")
		}
		home = filepath.Join(xdg, "rustyterm")
	}
	Dir = home

	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return errors.Errorf("config: create config directory %q: %w", Dir, err)
	}
	return nil
}

// PolicyFilePath is the on-disk path internal/security's hot-reload
// watcher loads from.
func PolicyFilePath() string {
	return filepath.Join(Dir, "policy.yaml")
}

// ColorschemeFilePath is the on-disk path InitColorscheme loads overrides
// from, if present.
func ColorschemeFilePath() string {
	return filepath.Join(Dir, "colorscheme.yaml")
}
