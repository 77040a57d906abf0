// Package config loads the tool-wide pack configuration and resolves the
// per-user directories sugar-pack reads and writes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName names the per-user config directory on Unix-like systems.
	AppName = "sugar-pack"
	// FileName is the pack configuration file inside ConfigDir.
	FileName = "pack.yaml"

	envPrefix      = "SUGAR_PACK"
	configDirEnv   = "SUGAR_PACK_CONFIG_DIR"
	windowsDirName = "SugarPack"
)

// Naming selects how pack names its archives.
type Naming string

const (
	NamingVersioned Naming = "Versioned"
	NamingGUID      Naming = "GUID"
)

// Config is the content of pack.yaml.
type Config struct {
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
	PackageNaming Naming `mapstructure:"package_naming" yaml:"package_naming"`
}

// ConfigDir returns the sugar-pack configuration directory. SUGAR_PACK_CONFIG_DIR
// wins, then %APPDATA% on Windows or $XDG_CONFIG_HOME (defaulting to ~/.config).
func ConfigDir() (string, error) {
	if d := os.Getenv(configDirEnv); d != "" {
		return d, nil
	}

	if runtime.GOOS == "windows" {
		dir := os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(dir, windowsDirName), nil
	}

	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultOutputDir is where archives go when pack.yaml does not say.
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// Default returns the configuration used when pack.yaml is absent.
func Default() Config {
	return Config{
		OutputDir:     DefaultOutputDir(),
		PackageNaming: NamingVersioned,
	}
}

// Load reads pack.yaml from dir, writing a default file first if none
// exists. SUGAR_PACK_OUTPUT_DIR and SUGAR_PACK_PACKAGE_NAMING override the
// file.
func Load(dir string) (Config, error) {
	path := filepath.Join(dir, FileName)
	if err := ensureFile(path); err != nil {
		return Config{}, err
	}

	v := viper.New()
	defaults := Default()
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("package_naming", string(defaults.PackageNaming))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.OutputDir = expandHome(cfg.OutputDir)
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}

	naming, err := ParseNaming(string(cfg.PackageNaming))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.PackageNaming = naming
	return cfg, nil
}

// ParseNaming accepts a package_naming value case-insensitively. Empty means
// Versioned.
func ParseNaming(s string) (Naming, error) {
	switch {
	case s == "", strings.EqualFold(s, string(NamingVersioned)):
		return NamingVersioned, nil
	case strings.EqualFold(s, string(NamingGUID)):
		return NamingGUID, nil
	}
	return "", fmt.Errorf("invalid package_naming %q (want %s or %s)", s, NamingVersioned, NamingGUID)
}

func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	d := Default()
	content := fmt.Sprintf("output_dir: %q\npackage_naming: %s\n", d.OutputDir, d.PackageNaming)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write default %s: %w", FileName, err)
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
