// Package dotdir resolves the .devcoach/ directory that holds config.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the devcoach directory.
	DirName = ".devcoach"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .devcoach/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.devcoach/ dir
//  3. Home ~/.devcoach/ dir
//
// If none is found, Target returns an empty string and callers fall back to
// defaults.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating devcoach directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, DirName); isDir(local) {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	if global := filepath.Join(home, DirName); isDir(global) {
		return global, nil
	}

	return "", nil
}

// Create makes the .devcoach/ directory in the override location or, when no
// override is given, in the current working directory. It returns the
// absolute path.
func (m *Manager) Create(overrideDir string) (string, error) {
	dir := overrideDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating devcoach directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
