// Package manifest reads and rewrites a module package's manifest document.
//
// The document is YAML with a top-level "manifest" mapping (name, version and
// the module loader's other keys) and an optional "installdefs" mapping. It is
// parsed declaratively; upgrades edit the version node in place so key order,
// comments and sequence layout survive the rewrite.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest document expected at a package root.
const FileName = "manifest.yaml"

const manifestKey = "manifest"

// Manifest holds the well-known module loader keys. Keys this type does not
// name are kept in Extra.
type Manifest struct {
	Name                    string         `yaml:"name"`
	Version                 string         `yaml:"version"`
	Author                  string         `yaml:"author,omitempty"`
	Description             string         `yaml:"description,omitempty"`
	Type                    string         `yaml:"type,omitempty"`
	PublishedDate           string         `yaml:"published_date,omitempty"`
	IsUninstallable         bool           `yaml:"is_uninstallable,omitempty"`
	AcceptableSugarVersions []string       `yaml:"acceptable_sugar_versions,omitempty"`
	AcceptableSugarFlavors  []string       `yaml:"acceptable_sugar_flavors,omitempty"`
	Extra                   map[string]any `yaml:",inline"`
}

// Document is a loaded manifest file.
type Document struct {
	path string
	root yaml.Node

	Manifest Manifest
}

// Load parses the manifest document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.path = path
	return doc, nil
}

// Parse decodes a manifest document from data.
func Parse(data []byte) (*Document, error) {
	d := &Document{}
	if err := yaml.Unmarshal(data, &d.root); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	node := d.section(manifestKey)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, errors.New("manifest document has no \"manifest\" mapping")
	}
	if err := node.Decode(&d.Manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if d.Manifest.Name == "" {
		return nil, errors.New("manifest has no name")
	}
	if d.Manifest.Version == "" {
		return nil, errors.New("manifest has no version")
	}
	return d, nil
}

// Name returns the package name.
func (d *Document) Name() string { return d.Manifest.Name }

// Version returns the recorded package version.
func (d *Document) Version() string { return d.Manifest.Version }

// Upgrade bumps the version and writes the document back to disk.
func (d *Document) Upgrade(t UpgradeType) (string, error) {
	next, err := UpgradeVersion(d.Manifest.Version, t)
	if err != nil {
		return "", err
	}
	if err := d.SetVersion(next); err != nil {
		return "", err
	}
	if err := d.Save(); err != nil {
		return "", err
	}
	return next, nil
}

// SetVersion replaces the version in memory.
func (d *Document) SetVersion(version string) error {
	v := valueOf(d.section(manifestKey), "version")
	if v == nil || v.Kind != yaml.ScalarNode {
		return errors.New("manifest version is not a scalar")
	}
	v.Value = version
	v.Tag = "!!str"
	d.Manifest.Version = version
	return nil
}

// Bytes encodes the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d.root); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the document back to the file it was loaded from.
func (d *Document) Save() error {
	if d.path == "" {
		return errors.New("manifest was not loaded from a file")
	}
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	info, err := os.Stat(d.path)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.WriteFile(d.path, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// section returns the value node of a top-level key.
func (d *Document) section(key string) *yaml.Node {
	if d.root.Kind != yaml.DocumentNode || len(d.root.Content) == 0 {
		return nil
	}
	return valueOf(d.root.Content[0], key)
}

func valueOf(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
