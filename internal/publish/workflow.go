// Package publish replaces a package on a remote instance: it authenticates,
// clears any installed or staged copy, then uploads and installs a fresh
// archive. Steps run strictly in order and nothing is retried.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/PraveenPrabhuT/sugar-pack/internal/archive"
	"github.com/PraveenPrabhuT/sugar-pack/internal/manifest"
)

// Workflow runs one publish.
type Workflow struct {
	remote   Remote
	artifact Artifact
	approver Approver
	observer Observer
	logger   *log.Logger
	tempDir  string
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(w *Workflow) {
		if o != nil {
			w.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithTempDir sets where the archive is built. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(w *Workflow) {
		w.tempDir = dir
	}
}

// New builds a Workflow. A nil approver declines every conflict.
func New(remote Remote, artifact Artifact, approver Approver, opts ...Option) *Workflow {
	w := &Workflow{
		remote:   remote,
		artifact: artifact,
		approver: approver,
		observer: ObserverFunc(func(Event) {}),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run publishes target. Every state transition is a cancellation point; the
// local archive is removed on every path once it has been created.
func (w *Workflow) Run(ctx context.Context, target Target) Outcome {
	state := StateStart
	fail := func(err error) Outcome {
		w.logger.Debug("publish failed", "state", state, "err", err)
		w.emit(Event{State: StateFailed, Message: err.Error()})
		return Outcome{Status: StatusFailed, Name: target.Name, Version: target.Version, State: state, Err: err}
	}
	enter := func(s State, msg string, total int64) error {
		state = s
		w.emit(Event{State: s, Message: msg, Total: total})
		return ctx.Err()
	}

	if err := enter(StateAuthenticating, "Authenticating...", 1); err != nil {
		return fail(err)
	}
	if _, err := w.remote.AccessToken(ctx); err != nil {
		return fail(err)
	}

	if err := enter(StateCheckInstalled, "Verifying if the package is already installed...", 1); err != nil {
		return fail(err)
	}
	installed, err := w.remote.InstalledPackage(ctx, target.Name)
	if err != nil {
		return fail(err)
	}

	if installed != nil {
		w.emit(Event{State: StateCheckInstalled, Message: fmt.Sprintf("Found package installed with version: %s", installed.Version)})

		if cmp := manifest.CompareVersions(target.Version, installed.Version); cmp <= 0 {
			if err := enter(StateConfirmOverwrite, "Waiting for confirmation...", 1); err != nil {
				return fail(err)
			}
			ok, err := w.approve(ctx, Conflict{
				Name:             target.Name,
				InstalledVersion: installed.Version,
				LocalVersion:     target.Version,
				Comparison:       cmp,
			})
			if err != nil {
				return fail(err)
			}
			if !ok {
				w.emit(Event{State: StateAborted, Message: "Aborting publish."})
				return Outcome{
					Status:  StatusAborted,
					Name:    target.Name,
					Version: target.Version,
					Reason:  fmt.Sprintf("installed version %s is not older than %s", installed.Version, target.Version),
				}
			}
		}

		if err := enter(StateUninstalling, "Uninstalling package...", 1); err != nil {
			return fail(err)
		}
		if err := w.remote.UninstallPackage(ctx, installed.ID); err != nil {
			return fail(err)
		}
		if err := w.remote.DeleteStagedPackage(ctx, target.Name); err != nil {
			return fail(err)
		}
	}

	if err := enter(StateCheckStaged, "Checking for a staged package...", 1); err != nil {
		return fail(err)
	}
	staged, err := w.remote.StagedPackage(ctx, target.Name)
	if err != nil {
		return fail(err)
	}
	if staged != nil {
		w.emit(Event{State: StateCheckStaged, Message: fmt.Sprintf("Found staged package with version: %s", staged.Version)})
		if err := enter(StateDeletingStaged, "Deleting staged package...", 1); err != nil {
			return fail(err)
		}
		if err := w.remote.DeleteStagedPackage(ctx, target.Name); err != nil {
			return fail(err)
		}
	}

	installID, err := w.upload(ctx, target, enter)
	if err != nil {
		return fail(err)
	}

	if err := enter(StateInstalling, "Installing package...", 1); err != nil {
		return fail(err)
	}
	if err := w.remote.InstallPackage(ctx, installID); err != nil {
		return fail(err)
	}

	w.emit(Event{
		State:   StateDone,
		Message: fmt.Sprintf("Package %s v%s installed successfully", target.Name, target.Version),
		Current: 1,
		Total:   1,
	})
	return Outcome{Status: StatusInstalled, Name: target.Name, Version: target.Version}
}

// upload covers Compressing and Uploading. The scratch file, the archive and
// the open handle are released before it returns, whatever the result.
func (w *Workflow) upload(ctx context.Context, target Target, enter func(State, string, int64) error) (string, error) {
	if err := enter(StateCompressing, "Compressing package...", 1); err != nil {
		return "", err
	}

	scratch, err := os.CreateTemp(w.tempDir, "sugar-pack")
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	scratchPath := scratch.Name()
	scratch.Close()
	zipPath := scratchPath + ".zip"
	defer func() {
		for _, p := range []string{scratchPath, zipPath} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				w.logger.Warn("could not remove temporary file", "path", p, "err", err)
			}
		}
	}()

	entries, err := w.artifact.Compress(zipPath)
	if err != nil {
		var artErr *archive.ArtifactError
		if errors.As(err, &artErr) {
			return "", err
		}
		return "", &archive.ArtifactError{Op: "compress", Path: zipPath, Err: err}
	}

	f, err := os.Open(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}
	total := info.Size()
	w.logger.Debug("archive ready", "path", zipPath, "entries", entries, "bytes", total)

	if err := enter(StateUploading, "Uploading file...", total); err != nil {
		return "", err
	}

	return w.remote.UploadPackage(ctx, target.Name+".zip", f, total, func(sent int64) {
		w.emit(Event{State: StateUploading, Message: "Uploading file...", Current: sent, Total: total})
	})
}

func (w *Workflow) approve(ctx context.Context, c Conflict) (bool, error) {
	if w.approver == nil {
		return false, nil
	}
	return w.approver.Approve(ctx, c)
}

func (w *Workflow) emit(e Event) {
	w.observer.Progress(e)
}
