package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv names the environment variable that overrides the home directory.
const HomeEnv = "BSHAPE_HOME"

// GetHome returns the bshape home directory, creating it if needed.
// Priority order:
//  1. BSHAPE_HOME environment variable (if set)
//  2. .bshape in the current working directory.
func GetHome() (string, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		home = filepath.Join(cwd, ".bshape")
	}

	// Drafts and submissions hold sensitive answers
	if err := os.MkdirAll(home, 0700); err != nil {
		return "", fmt.Errorf("create bshape home directory: %w", err)
	}
	return home, nil
}
