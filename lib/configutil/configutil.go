// Package configutil loads json5 configuration files with per-deployment
// local overrides, the convention every config in this repo follows
// (config.json5, telemetry.json5).
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func localName(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)] + ".local" + ext
}

// readInto reports whether the file existed with content; a missing or
// empty file is not an error.
func readInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return true, nil
}

// ReadConfig loads <name> and merges <stem>.local.<ext> over it, so
// checked-in defaults can be overridden without touching them. Returns
// os.ErrNotExist when neither file has content.
func ReadConfig[T any](name string) (T, error) {
	var out T

	found, err := readInto(name, &out)
	if err != nil {
		return out, err
	}

	local := localName(name)
	var override T
	foundLocal, err := readInto(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks up from the cwd until it finds the config, which
// lets tests deep in the package tree pick up a repo-root telemetry.json5.
func ReadRecursively[T any](name string) (T, error) {
	var out T

	dir, err := os.Getwd()
	if err != nil {
		return out, err
	}
	for {
		out, err = ReadConfig[T](filepath.Join(dir, name))
		if !os.IsNotExist(err) {
			return out, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return out, os.ErrNotExist
		}
		dir = parent
	}
}
