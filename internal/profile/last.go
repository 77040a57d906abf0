package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func lastPath(dir, packageName string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_last_profile", packageName))
}

// SaveLast records profileName as the last profile used to publish
// packageName.
func SaveLast(dir, packageName, profileName string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(lastPath(dir, packageName), []byte(profileName), 0o600)
}

// LoadLast returns the profile last used to publish packageName.
func LoadLast(dir, packageName string, profiles []Profile) (Profile, error) {
	data, err := os.ReadFile(lastPath(dir, packageName))
	if err != nil {
		return Profile{}, fmt.Errorf("no history found for package '%s'", packageName)
	}

	name := strings.TrimSpace(string(data))
	if p, ok := ByName(profiles, name); ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("last used profile '%s' not found in the profiles file", name)
}
