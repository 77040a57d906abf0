package archive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func zipEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer r.Close()

	out := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestCompress_AllowListOnly(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Pkg")
	writeFile(t, filepath.Join(root, "main.php"), "<?php echo 1;")
	writeFile(t, filepath.Join(root, "debug.log"), "noise")
	writeFile(t, filepath.Join(root, "checksum.md5"), "abc")

	dest := filepath.Join(t.TempDir(), "out.zip")
	n, err := Compress(root, dest)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if n != 2 {
		t.Errorf("Compress: wrote %d entries, want 2", n)
	}

	entries := zipEntries(t, dest)
	if len(entries) != 2 {
		t.Fatalf("archive has %d entries, want 2: %v", len(entries), entries)
	}
	if _, ok := entries["debug.log"]; ok {
		t.Error("debug.log must be filtered out")
	}
}

func TestCompress_RelativeNestedPaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Pkg")
	writeFile(t, filepath.Join(root, "custom", "modules", "Accounts", "logic.php"), "x")
	writeFile(t, filepath.Join(root, "custom", "clients", "base", "view.hbs"), "y")
	writeFile(t, filepath.Join(root, "images", "Logo.PNG"), "z")

	dest := filepath.Join(t.TempDir(), "out.zip")
	if _, err := Compress(root, dest); err != nil {
		t.Fatal(err)
	}

	var names []string
	for name := range zipEntries(t, dest) {
		names = append(names, name)
	}
	sort.Strings(names)
	want := []string{"custom/clients/base/view.hbs", "custom/modules/Accounts/logic.php", "images/Logo.PNG"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("entries: got %v, want %v", names, want)
	}
}

func TestCompress_ExtraReplacesWalkedFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Pkg")
	writeFile(t, filepath.Join(root, "manifest.php"), "stale")

	dest := filepath.Join(t.TempDir(), "out.zip")
	n, err := Compress(root, dest, Entry{Name: "manifest.php", Data: []byte("fresh")})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("entries: got %d, want 1", n)
	}
	if got := zipEntries(t, dest)["manifest.php"]; got != "fresh" {
		t.Errorf("manifest.php: got %q, want fresh", got)
	}
}

func TestCompress_MissingRoot(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.zip")
	_, err := Compress(filepath.Join(t.TempDir(), "nope"), dest)

	var artErr *ArtifactError
	if !errors.As(err, &artErr) {
		t.Fatalf("Compress: got %v, want ArtifactError", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("partial archive should be removed")
	}
}

func TestOpen_NotAPackage(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotAPackage) {
		t.Errorf("Open: got %v, want ErrNotAPackage", err)
	}
}

func TestPackageCompress_GeneratesManifestPHP(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Pkg")
	writeFile(t, filepath.Join(root, "manifest.yaml"), "manifest:\n  name: Pkg\n  version: 1.0.0\n")
	writeFile(t, filepath.Join(root, "scripts", "post_install.php"), "<?php")

	pkg, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pkg.Manifest.Name() != "Pkg" {
		t.Errorf("manifest name: got %q", pkg.Manifest.Name())
	}

	dest := filepath.Join(t.TempDir(), "Pkg.zip")
	if _, err := pkg.Compress(dest); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	entries := zipEntries(t, dest)
	if _, ok := entries["manifest.yaml"]; ok {
		t.Error("manifest.yaml is not an allowed file type")
	}
	php, ok := entries["manifest.php"]
	if !ok {
		t.Fatalf("manifest.php missing: %v", entries)
	}
	if !strings.Contains(php, "'name' => 'Pkg',") {
		t.Errorf("manifest.php: %s", php)
	}
	if _, ok := entries["scripts/post_install.php"]; !ok {
		t.Error("scripts/post_install.php missing")
	}
}

func TestDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.zip")
	writeFile(t, path, "hello")

	d1, err := Digest(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(d1) != 64 {
		t.Errorf("digest length: got %d, want 64", len(d1))
	}

	writeFile(t, path, "hello!")
	d2, err := Digest(path)
	if err != nil {
		t.Fatal(err)
	}
	if d1 == d2 {
		t.Error("digest should change with content")
	}
}

func TestAllowed(t *testing.T) {
	for name, want := range map[string]bool{
		"a.php": true, "b.JS": true, "c.log": false, "noext": false, "d.tar.gz": false, "e.tpl": true,
	} {
		if got := Allowed(name); got != want {
			t.Errorf("Allowed(%q): got %v, want %v", name, got, want)
		}
	}
}
