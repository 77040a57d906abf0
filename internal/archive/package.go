// Package archive turns a module package directory into the ZIP archive the
// module loader installs.
package archive

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/PraveenPrabhuT/sugar-pack/internal/manifest"
	"github.com/zeebo/blake3"
)

// ArtifactError reports a local packaging failure.
type ArtifactError struct {
	Op   string
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// ErrNotAPackage is returned when a directory has no manifest document.
var ErrNotAPackage = errors.New("the specified path does not contain a valid module loadable package")

// Package is a module package directory and its manifest.
type Package struct {
	Dir      string
	Manifest *manifest.Document
}

// Open validates dir and loads its manifest document.
func Open(dir string) (*Package, error) {
	abs, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return nil, fmt.Errorf("resolve package path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotAPackage)
	}
	path := filepath.Join(abs, manifest.FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotAPackage)
	}

	doc, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return &Package{Dir: abs, Manifest: doc}, nil
}

// Compress writes the package archive to dest, generating manifest.php from
// the manifest document.
func (p *Package) Compress(dest string) (int, error) {
	php, err := p.Manifest.PHP()
	if err != nil {
		return 0, &ArtifactError{Op: "render manifest", Path: p.Dir, Err: err}
	}
	return Compress(p.Dir, dest, Entry{Name: manifest.PHPFileName, Data: php})
}

// Digest returns the hex BLAKE3 digest of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ArtifactError{Op: "digest", Path: path, Err: err}
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", &ArtifactError{Op: "digest", Path: path, Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
