package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultProfileFile is the default profile file name.
const DefaultProfileFile = ".seolog"

// ErrProfileNotFound is returned when the profile file does not exist.
var ErrProfileNotFound = errors.New("profile file not found")

// LoadProfile loads a site profile from a YAML file.
// If the file does not exist, it returns ErrProfileNotFound.
// Callers should handle this error appropriately based on whether
// the profile path was explicitly specified by the user.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided profile path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// FindProfileFile searches for the profile file in the following order:
// 1. If profilePath is specified, use it directly
// 2. Look for .seolog in the current directory
// 3. Look for .seolog in the user's home directory
//
// Returns the path to the profile file if found, or empty string if not found.
func FindProfileFile(profilePath string) string {
	// If explicit path is provided, use it
	if profilePath != "" {
		if _, err := os.Stat(profilePath); err == nil {
			return profilePath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdProfile := filepath.Join(cwd, DefaultProfileFile)
		if _, err := os.Stat(cwdProfile); err == nil {
			return cwdProfile
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeProfile := filepath.Join(home, DefaultProfileFile)
		if _, err := os.Stat(homeProfile); err == nil {
			return homeProfile
		}
	}

	return ""
}
