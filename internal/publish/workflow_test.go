package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/PraveenPrabhuT/sugar-pack/internal/archive"
	"github.com/PraveenPrabhuT/sugar-pack/internal/manifest"
	"github.com/PraveenPrabhuT/sugar-pack/internal/sugar"
)

// fakeRemote records calls in order and serves canned packages.
type fakeRemote struct {
	calls     []string
	installed *sugar.Package
	staged    *sugar.Package
	authErr   error
	failOn    map[string]error
	uploaded  []byte
}

func (f *fakeRemote) fail(call string) error {
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeRemote) AccessToken(ctx context.Context) (string, error) {
	f.calls = append(f.calls, "token")
	if f.authErr != nil {
		return "", f.authErr
	}
	return "tok", nil
}

func (f *fakeRemote) InstalledPackage(ctx context.Context, name string) (*sugar.Package, error) {
	if err := f.fail("installed"); err != nil {
		return nil, err
	}
	return f.installed, nil
}

func (f *fakeRemote) StagedPackage(ctx context.Context, name string) (*sugar.Package, error) {
	if err := f.fail("staged"); err != nil {
		return nil, err
	}
	return f.staged, nil
}

func (f *fakeRemote) UninstallPackage(ctx context.Context, id string) error {
	if err := f.fail("uninstall:" + id); err != nil {
		return err
	}
	f.installed = nil
	return nil
}

func (f *fakeRemote) DeleteStagedPackage(ctx context.Context, name string) error {
	if err := f.fail("delete-staged"); err != nil {
		return err
	}
	f.staged = nil
	return nil
}

func (f *fakeRemote) UploadPackage(ctx context.Context, filename string, r io.Reader, size int64, onProgress sugar.ProgressFunc) (string, error) {
	if err := f.fail("upload:" + filename); err != nil {
		return "", err
	}
	buf := make([]byte, 7)
	var sent int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			f.uploaded = append(f.uploaded, buf[:n]...)
			sent += int64(n)
			onProgress(sent)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return "install-1", nil
}

func (f *fakeRemote) InstallPackage(ctx context.Context, installID string) error {
	return f.fail("install:" + installID)
}

type fakeArtifact struct {
	data string
	err  error
}

func (a fakeArtifact) Compress(dest string) (int, error) {
	if a.err != nil {
		return 0, a.err
	}
	return 1, os.WriteFile(dest, []byte(a.data), 0o600)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Progress(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []State
	for _, e := range l.events {
		if len(out) == 0 || out[len(out)-1] != e.State {
			out = append(out, e.State)
		}
	}
	return out
}

func approveWith(answer bool, seen *[]Conflict) Approver {
	return ApproverFunc(func(ctx context.Context, c Conflict) (bool, error) {
		if seen != nil {
			*seen = append(*seen, c)
		}
		return answer, nil
	})
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("temporary files leaked: %v", names)
	}
}

func TestRun_FreshInstall(t *testing.T) {
	pkgDir := filepath.Join(t.TempDir(), "Pkg")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, manifest.FileName), []byte("manifest:\n  name: Pkg\n  version: 1.0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "logic.php"), []byte("<?php"), 0o644); err != nil {
		t.Fatal(err)
	}

	pkg, err := archive.Open(pkgDir)
	if err != nil {
		t.Fatal(err)
	}
	version, err := pkg.Manifest.Upgrade(manifest.Patch)
	if err != nil {
		t.Fatal(err)
	}

	remote := &fakeRemote{}
	events := &eventLog{}
	tmp := t.TempDir()
	w := New(remote, pkg, approveWith(false, nil), WithObserver(events), WithTempDir(tmp))

	out := w.Run(context.Background(), Target{Name: pkg.Manifest.Name(), Version: version})

	if out.Status != StatusInstalled || out.Name != "Pkg" || out.Version != "1.0.1" {
		t.Fatalf("Run: got %+v, want Installed(Pkg, 1.0.1)", out)
	}
	want := "token,installed,staged,upload:Pkg.zip,install:install-1"
	if got := strings.Join(remote.calls, ","); got != want {
		t.Errorf("calls: got %s, want %s", got, want)
	}
	if len(remote.uploaded) == 0 {
		t.Error("nothing uploaded")
	}
	assertTempDirEmpty(t, tmp)

	wantStates := []State{StateAuthenticating, StateCheckInstalled, StateCheckStaged, StateCompressing, StateUploading, StateInstalling, StateDone}
	if got := events.states(); !equalStates(got, wantStates) {
		t.Errorf("states: got %v, want %v", got, wantStates)
	}
}

func TestRun_EqualVersionDeclined(t *testing.T) {
	remote := &fakeRemote{installed: &sugar.Package{ID: "id-1", Name: "Pkg", Version: "1.0.0"}}
	var seen []Conflict
	tmp := t.TempDir()
	w := New(remote, fakeArtifact{data: "zip"}, approveWith(false, &seen), WithTempDir(tmp))

	out := w.Run(context.Background(), Target{Name: "Pkg", Version: "1.0.0"})

	if out.Status != StatusAborted {
		t.Fatalf("Run: got %+v, want Aborted", out)
	}
	if got := strings.Join(remote.calls, ","); got != "token,installed" {
		t.Errorf("calls after decline: %s", got)
	}
	if len(seen) != 1 || seen[0].Comparison != 0 || seen[0].InstalledVersion != "1.0.0" {
		t.Errorf("conflict: %+v", seen)
	}
	assertTempDirEmpty(t, tmp)
}

func TestRun_ConfirmationRules(t *testing.T) {
	cases := []struct {
		local, installed string
		wantAsk          bool
	}{
		{"2.0.0", "1.9.9", false},
		{"1.0.0", "1.0.0", true},
		{"1.0.0", "1.0.1", true},
	}
	for _, tc := range cases {
		t.Run(tc.local+"_vs_"+tc.installed, func(t *testing.T) {
			remote := &fakeRemote{installed: &sugar.Package{ID: "id-1", Name: "Pkg", Version: tc.installed}}
			var seen []Conflict
			w := New(remote, fakeArtifact{data: "zip"}, approveWith(true, &seen), WithTempDir(t.TempDir()))

			out := w.Run(context.Background(), Target{Name: "Pkg", Version: tc.local})

			if out.Status != StatusInstalled {
				t.Fatalf("Run: got %+v", out)
			}
			if asked := len(seen) > 0; asked != tc.wantAsk {
				t.Errorf("confirmation asked = %v, want %v", asked, tc.wantAsk)
			}
		})
	}
}

func TestRun_ReplacesInstalledPackage(t *testing.T) {
	remote := &fakeRemote{
		installed: &sugar.Package{ID: "id-1", Name: "Pkg", Version: "1.0.0"},
		staged:    &sugar.Package{Name: "Pkg", Version: "1.0.0", StagedFileID: "f1"},
	}
	w := New(remote, fakeArtifact{data: "zip"}, nil, WithTempDir(t.TempDir()))

	out := w.Run(context.Background(), Target{Name: "Pkg", Version: "1.1.0"})

	if out.Status != StatusInstalled {
		t.Fatalf("Run: got %+v", out)
	}
	want := "token,installed,uninstall:id-1,delete-staged,staged,upload:Pkg.zip,install:install-1"
	if got := strings.Join(remote.calls, ","); got != want {
		t.Errorf("calls: got %s, want %s", got, want)
	}
}

func TestRun_DeletesLeftoverStagedPackage(t *testing.T) {
	remote := &fakeRemote{staged: &sugar.Package{Name: "Pkg", Version: "0.9.0", StagedFileID: "f1"}}
	w := New(remote, fakeArtifact{data: "zip"}, nil, WithTempDir(t.TempDir()))

	out := w.Run(context.Background(), Target{Name: "Pkg", Version: "1.0.0"})

	if out.Status != StatusInstalled {
		t.Fatalf("Run: got %+v", out)
	}
	want := "token,installed,staged,delete-staged,upload:Pkg.zip,install:install-1"
	if got := strings.Join(remote.calls, ","); got != want {
		t.Errorf("calls: got %s, want %s", got, want)
	}
}

func TestRun_AuthenticationFailure(t *testing.T) {
	authErr := &sugar.AuthenticationError{Err: &sugar.ResponseError{Status: 401, Message: "Unauthorized"}}
	remote := &fakeRemote{authErr: authErr}
	w := New(remote, fakeArtifact{data: "zip"}, nil, WithTempDir(t.TempDir()))

	out := w.Run(context.Background(), Target{Name: "Pkg", Version: "1.0.1"})

	if out.Status != StatusFailed || out.State != StateAuthenticating {
		t.Fatalf("Run: got %+v", out)
	}
	var ae *sugar.AuthenticationError
	if !errors.As(out.Err, &ae) {
		t.Errorf("Err: got %v, want AuthenticationError", out.Err)
	}
	if got := strings.Join(remote.calls, ","); got != "token" {
		t.Errorf("no package call may follow a failed authentication, got %s", got)
	}
}

func TestRun_CompressFailureCleansUp(t *testing.T) {
	remote := &fakeRemote{}
	tmp := t.TempDir()
	w := New(remote, fakeArtifact{err: errors.New("disk full")}, nil, WithTempDir(tmp))

	out := w.Run(context.Background(), Target{Name: "Pkg", Version: "1.0.0"})

	if out.Status != StatusFailed || out.State != StateCompressing {
		t.Fatalf("Run: got %+v", out)
	}
	var artErr *archive.ArtifactError
	if !errors.As(out.Err, &artErr) {
		t.Errorf("Err: got %v, want ArtifactError", out.Err)
	}
	for _, c := range remote.calls {
		if strings.HasPrefix(c, "upload") || strings.HasPrefix(c, "install:") {
			t.Errorf("unexpected call %s after failed compression", c)
		}
	}
	assertTempDirEmpty(t, tmp)
}

func TestRun_UploadFailureCleansUp(t *testing.T) {
	upErr := &sugar.UploadError{Err: errors.New("boom")}
	remote := &fakeRemote{failOn: map[string]error{"upload:Pkg.zip": upErr}}
	tmp := t.TempDir()
	w := New(remote, fakeArtifact{data: "zip"}, nil, WithTempDir(tmp))

	out := w.Run(context.Background(), Target{Name: "Pkg", Version: "1.0.0"})

	if out.Status != StatusFailed || out.State != StateUploading || !errors.Is(out.Err, upErr) {
		t.Fatalf("Run: got %+v", out)
	}
	assertTempDirEmpty(t, tmp)
}

func TestRun_UninstallFailureStops(t *testing.T) {
	opErr := &sugar.RemoteOperationError{Op: "uninstall package", Err: errors.New("nope")}
	remote := &fakeRemote{
		installed: &sugar.Package{ID: "id-1", Name: "Pkg", Version: "1.0.0"},
		failOn:    map[string]error{"uninstall:id-1": opErr},
	}
	w := New(remote, fakeArtifact{data: "zip"}, nil, WithTempDir(t.TempDir()))

	out := w.Run(context.Background(), Target{Name: "Pkg", Version: "2.0.0"})

	if out.Status != StatusFailed || out.State != StateUninstalling {
		t.Fatalf("Run: got %+v", out)
	}
	if got := strings.Join(remote.calls, ","); got != "token,installed,uninstall:id-1" {
		t.Errorf("calls: %s", got)
	}
}

func TestRun_ApproverError(t *testing.T) {
	remote := &fakeRemote{installed: &sugar.Package{ID: "id-1", Name: "Pkg", Version: "1.0.0"}}
	approver := ApproverFunc(func(context.Context, Conflict) (bool, error) {
		return false, errors.New("stdin closed")
	})
	w := New(remote, fakeArtifact{data: "zip"}, approver, WithTempDir(t.TempDir()))

	out := w.Run(context.Background(), Target{Name: "Pkg", Version: "1.0.0"})
	if out.Status != StatusFailed || out.State != StateConfirmOverwrite {
		t.Fatalf("Run: got %+v", out)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	remote := &fakeRemote{}
	tmp := t.TempDir()
	w := New(remote, fakeArtifact{data: "zip"}, nil, WithTempDir(tmp), WithObserver(ObserverFunc(func(e Event) {
		if e.State == StateCompressing {
			cancel()
		}
	})))

	out := w.Run(ctx, Target{Name: "Pkg", Version: "1.0.0"})

	if out.Status != StatusFailed || !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("Run: got %+v", out)
	}
	for _, c := range remote.calls {
		if strings.HasPrefix(c, "upload") {
			t.Errorf("upload after cancellation: %s", c)
		}
	}
	assertTempDirEmpty(t, tmp)
}

func TestRun_CancelledAfterArchiveWritten(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	remote := &fakeRemote{}
	tmp := t.TempDir()
	var filesAtCancel int
	w := New(remote, fakeArtifact{data: "zip"}, nil, WithTempDir(tmp), WithObserver(ObserverFunc(func(e Event) {
		if e.State == StateUploading && e.Current == 0 {
			entries, _ := os.ReadDir(tmp)
			filesAtCancel = len(entries)
			cancel()
		}
	})))

	out := w.Run(ctx, Target{Name: "Pkg", Version: "1.0.0"})

	if out.Status != StatusFailed || out.State != StateUploading || !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("Run: got %+v", out)
	}
	if filesAtCancel != 2 {
		t.Errorf("files in temp dir when cancelled: got %d, want scratch file and archive", filesAtCancel)
	}
	for _, c := range remote.calls {
		if strings.HasPrefix(c, "upload") {
			t.Errorf("upload after cancellation: %s", c)
		}
	}
	assertTempDirEmpty(t, tmp)
}

func TestRun_UploadProgress(t *testing.T) {
	data := strings.Repeat("0123456789", 10)
	remote := &fakeRemote{}
	events := &eventLog{}
	w := New(remote, fakeArtifact{data: data}, nil, WithTempDir(t.TempDir()), WithObserver(events))

	if out := w.Run(context.Background(), Target{Name: "Pkg", Version: "1.0.0"}); out.Status != StatusInstalled {
		t.Fatalf("Run: got %+v", out)
	}

	var last int64 = -1
	for _, e := range events.events {
		if e.State != StateUploading {
			continue
		}
		if e.Total != int64(len(data)) {
			t.Errorf("upload total: got %d, want %d", e.Total, len(data))
		}
		if e.Current < last {
			t.Errorf("progress decreased: %d -> %d", last, e.Current)
		}
		last = e.Current
	}
	if last != int64(len(data)) {
		t.Errorf("final progress: got %d, want %d", last, len(data))
	}
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
