package sugar

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

// uploadField is the multipart field the module loader reads the archive from.
const uploadField = "upgrade_zip"

// ProgressFunc receives the number of archive bytes sent so far.
type ProgressFunc func(sent int64)

// UploadPackage streams the archive in r (size bytes, named filename) as a
// multipart upload and returns the install id the server assigns to it.
// onProgress, when set, is called with a non-decreasing byte count that ends
// at size.
func (c *Client) UploadPackage(ctx context.Context, filename string, r io.Reader, size int64, onProgress ProgressFunc) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if _, err := mw.CreateFormFile(uploadField, filepath.Base(filename)); err != nil {
		return "", &UploadError{Err: err}
	}
	head := append([]byte(nil), buf.Bytes()...)
	buf.Reset()
	if err := mw.Close(); err != nil {
		return "", &UploadError{Err: err}
	}
	tail := append([]byte(nil), buf.Bytes()...)

	body := io.MultiReader(
		bytes.NewReader(head),
		&progressReader{r: r, onProgress: onProgress},
		bytes.NewReader(tail),
	)

	req, err := c.newRequest(ctx, "upload package", http.MethodPost, packagesAPI, body)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			return "", err
		}
		return "", &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if size >= 0 {
		req.ContentLength = int64(len(head)) + size + int64(len(tail))
	}

	c.logger.Debug("uploading package", "file", filepath.Base(filename), "bytes", size)

	var ur uploadResponse
	if err := c.send(req, &ur); err != nil {
		return "", &UploadError{Err: err}
	}
	if ur.FileInstall == "" {
		return "", &UploadError{Err: errors.New("upload response is missing file_install")}
	}
	return ur.FileInstall, nil
}

// progressReader reports the running byte count after every read.
type progressReader struct {
	r          io.Reader
	sent       int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent)
		}
	}
	return n, err
}
