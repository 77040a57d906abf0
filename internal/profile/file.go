// Package profile loads publish profiles and resolves them, together with
// command-line overrides, into the connection used to reach an instance.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// FileName is the publish profiles file looked up next to a package.
const FileName = "sugar_pack.publish.json"

// ErrNoProfiles is returned when a profiles file defines no profiles.
var ErrNoProfiles = errors.New("profiles file defines no profiles")

type profilesFile struct {
	Profiles []Profile `json:"profiles"`
}

// Locate returns the profiles file for the package at packageDir, checking
// the package directory first and then its parent.
func Locate(packageDir string) (string, bool) {
	for _, dir := range []string{packageDir, filepath.Dir(filepath.Clean(packageDir))} {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadFile reads the profiles in path. Comments and trailing commas are
// allowed.
func LoadFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var pf profilesFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &pf); err != nil {
		return nil, fmt.Errorf("%s: parsing profiles: %w", path, err)
	}
	if len(pf.Profiles) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoProfiles)
	}
	return pf.Profiles, nil
}

// Names lists profile names in file order, skipping unnamed profiles.
func Names(profiles []Profile) []string {
	var names []string
	for _, p := range profiles {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

// ByName returns the profile called name.
func ByName(profiles []Profile, name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
