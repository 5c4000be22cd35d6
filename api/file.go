// Package api holds the configuration file helpers shared by all API versions.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cernvm/litescript/pkg/yaml"
)

// AppName names the per-user configuration directory.
const AppName = "litescript"

var (
	// ErrIsDirectory is returned when a file path points at a directory.
	ErrIsDirectory = errors.New("path is a directory")
	// ErrNotRegular is returned when a file path points at a non-regular file.
	ErrNotRegular = errors.New("not a regular file")
)

// GetConfigPath returns the path of filename in the user configuration
// directory: $XDG_CONFIG_HOME/litescript, ~/.config/litescript, or a
// temporary directory when neither can be determined.
func GetConfigPath(filename string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, filename)
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".config", AppName, filename)
	}

	p := filepath.Join(os.TempDir(), AppName, filename)
	slog.Warn("could not determine user config directory, using temp path",
		slog.String("path", p),
		slog.Any("error", err),
	)

	return p
}

// ReadFile reads a regular file.
func ReadFile(path string) ([]byte, error) {
	err := checkRegular(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is chosen by the user.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// MarshalYAML encodes obj as YAML.
func MarshalYAML(obj any) ([]byte, error) {
	var b bytes.Buffer

	enc := yaml.NewEncoder(&b)

	err := enc.Encode(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}

	return b.Bytes(), nil
}

// FindConfigFile looks for any of fileNames in the directory of target (or
// target itself, if it is a directory) and then in each parent directory.
// It returns an empty string when nothing is found.
func FindConfigFile(target string, fileNames []string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("get absolute path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}

	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		for _, name := range fileNames {
			p := filepath.Join(dir, name)
			if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
				return p, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}

		dir = parent
	}
}

// WriteDefaultFile writes data to path, creating parent directories. An
// existing file is kept unless force is set, in which case it is renamed to
// a timestamped backup first.
func WriteDefaultFile(path string, data []byte, force bool, kind string) error {
	exists := true

	err := checkRegular(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return err
	}

	if exists && !force {
		slog.Debug("file already exists, skipping write",
			slog.String("type", kind),
			slog.String("path", path),
		)

		return nil
	}

	err = os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	if exists {
		backup := fmt.Sprintf("%s.%d.old", path, time.Now().UnixNano())
		slog.Info("backing up existing file",
			slog.String("type", kind),
			slog.String("path", backup),
		)

		err = os.Rename(path, backup)
		if err != nil {
			return fmt.Errorf("back up %s file: %w", kind, err)
		}
	}

	slog.Info("write default file",
		slog.String("type", kind),
		slog.String("path", path),
	)

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		return fmt.Errorf("write %s file: %w", kind, err)
	}

	return nil
}

func checkRegular(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	return nil
}
