package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// AllowedExtensions lists the file types the module loader accepts.
var AllowedExtensions = map[string]bool{
	"css": true, "gif": true, "hbs": true, "htm": true, "html": true,
	"jpg": true, "js": true, "md5": true, "pdf": true, "php": true,
	"png": true, "tpl": true, "txt": true, "xml": true,
}

// Entry is an in-memory file added to an archive next to the walked files.
// A walked file with the same name is replaced by it.
type Entry struct {
	Name string
	Data []byte
}

// Allowed reports whether name has an allow-listed extension.
func Allowed(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return AllowedExtensions[ext]
}

// Compress writes a ZIP archive at dest holding every allow-listed regular
// file under root, named relative to root, plus extra. It returns the number
// of entries written. A partial archive is removed on failure.
func Compress(root, dest string, extra ...Entry) (n int, err error) {
	out, err := os.Create(dest)
	if err != nil {
		return 0, &ArtifactError{Op: "create archive", Path: dest, Err: err}
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = &ArtifactError{Op: "close archive", Path: dest, Err: cerr}
		}
		if err != nil {
			os.Remove(dest)
		}
	}()

	replaced := make(map[string]bool, len(extra))
	for _, e := range extra {
		replaced[e.Name] = true
	}

	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !Allowed(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if replaced[name] {
			return nil
		}
		if err := addFile(zw, path, name); err != nil {
			return err
		}
		n++
		return nil
	})
	if walkErr != nil {
		zw.Close()
		return 0, &ArtifactError{Op: "compress", Path: root, Err: walkErr}
	}

	for _, e := range extra {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			zw.Close()
			return 0, &ArtifactError{Op: "compress", Path: e.Name, Err: err}
		}
		if _, err := w.Write(e.Data); err != nil {
			zw.Close()
			return 0, &ArtifactError{Op: "compress", Path: e.Name, Err: err}
		}
		n++
	}

	if err := zw.Close(); err != nil {
		return 0, &ArtifactError{Op: "finalize archive", Path: dest, Err: err}
	}
	return n, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}
