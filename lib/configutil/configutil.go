package configutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Config files are json5. Next to every <name>.<ext> a
// <name>.local.<ext> may exist carrying machine-local values
// (credentials, alternate db paths); it is merged over the base file
// and wins on conflicts. Local files are expected to stay out of
// version control.

func localVariant(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// decodeFile reads and decodes one config file into out. A missing
// file is not an error, the bool reports whether anything was read.
func decodeFile[T any](path string, out *T) (bool, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	return true, json5.Unmarshal(raw, out)
}

// ReadConfig loads <name> and merges <name>.local.<ext> over it.
// When neither file exists it returns os.ErrNotExist so callers can
// treat an absent config as optional.
func ReadConfig[T any](name string) (T, error) {
	var cfg T

	haveBase, err := decodeFile(name, &cfg)
	if err != nil {
		return cfg, err
	}

	localPath := localVariant(name)
	var override T
	haveLocal, err := decodeFile(localPath, &override)
	if err != nil {
		return cfg, err
	}
	if haveLocal {
		err = mergo.Merge(&cfg, override, mergo.WithOverride)
		if err != nil {
			return cfg, err
		}
		slog.Info("merged local config overrides", "path", localPath)
	}

	if !haveBase && !haveLocal {
		return cfg, os.ErrNotExist
	}
	return cfg, nil
}

// ReadRecursively looks for the named config in the working directory
// and then each parent up to the filesystem root. Binaries get run
// from package directories during development while the config sits at
// the repo root, this papers over that.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	dir, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		cfg, err := ReadConfig[T](filepath.Join(dir, name))
		if !os.IsNotExist(err) {
			return cfg, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, os.ErrNotExist
		}
		dir = parent
	}
}
