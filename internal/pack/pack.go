// Package pack implements the pack command: upgrade the package version,
// choose an archive name and write the archive.
package pack

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/PraveenPrabhuT/sugar-pack/internal/archive"
	"github.com/PraveenPrabhuT/sugar-pack/internal/config"
	"github.com/PraveenPrabhuT/sugar-pack/internal/manifest"
)

// Options configures a pack run (package path, output overrides, upgrade flags).
type Options struct {
	PackageDir  string
	Dir         string
	Output      string
	SkipUpgrade bool
	UpgradeType string
}

// Result describes the archive a run produced.
type Result struct {
	Path    string
	Name    string
	Version string
	Files   int
	Digest  string
}

// Upgrade bumps the package version unless skip is set. An unrecognised
// upgradeType is logged and treated as PATCH.
func Upgrade(pkg *archive.Package, skip bool, upgradeType string, logger *log.Logger) error {
	if skip {
		logger.Info("Skipping manifest upgrade")
		return nil
	}
	t, ok := manifest.ParseUpgradeType(upgradeType)
	if !ok {
		logger.Warn("Invalid upgrade type, defaulting to PATCH", "upgrade_type", upgradeType)
	}
	from := pkg.Manifest.Version()
	to, err := pkg.Manifest.Upgrade(t)
	if err != nil {
		return fmt.Errorf("upgrade manifest: %w", err)
	}
	logger.Debug("manifest upgraded", "from", from, "to", to, "type", t)
	return nil
}

// OutputPath returns where the archive for name/version goes. The --dir and
// --output overrides beat pack.yaml. A ".zip" suffix is added when missing.
func OutputPath(cfg config.Config, opts Options, name, version string) string {
	dir := cfg.OutputDir
	if opts.Dir != "" {
		dir = opts.Dir
	}

	var file string
	switch cfg.PackageNaming {
	case config.NamingGUID:
		file = uuid.NewString()
	default:
		file = name + "_v" + version
	}
	if opts.Output != "" {
		file = opts.Output
	}
	if !strings.EqualFold(filepath.Ext(file), ".zip") {
		file += ".zip"
	}
	return filepath.Join(dir, file)
}

// Run packs opts.PackageDir according to cfg.
func Run(ctx context.Context, opts Options, cfg config.Config, logger *log.Logger) (Result, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	pkg, err := archive.Open(opts.PackageDir)
	if err != nil {
		return Result{}, err
	}
	if err := Upgrade(pkg, opts.SkipUpgrade, opts.UpgradeType, logger); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{
		Name:    pkg.Manifest.Name(),
		Version: pkg.Manifest.Version(),
	}
	res.Path = OutputPath(cfg, opts, res.Name, res.Version)
	logger.Debug("compressing package", "dir", pkg.Dir, "dest", res.Path)
	if err := os.MkdirAll(filepath.Dir(res.Path), 0o755); err != nil {
		return Result{}, &archive.ArtifactError{Op: "create output directory", Path: filepath.Dir(res.Path), Err: err}
	}

	if res.Files, err = pkg.Compress(res.Path); err != nil {
		return Result{}, err
	}
	if res.Digest, err = archive.Digest(res.Path); err != nil {
		return Result{}, err
	}
	return res, nil
}
