package publish

import (
	"context"
	"io"

	"github.com/PraveenPrabhuT/sugar-pack/internal/sugar"
)

// State is one step of a publish run.
type State string

const (
	StateStart            State = "start"
	StateAuthenticating   State = "authenticating"
	StateCheckInstalled   State = "check-installed"
	StateConfirmOverwrite State = "confirm-overwrite"
	StateUninstalling     State = "uninstalling"
	StateCheckStaged      State = "check-staged"
	StateDeletingStaged   State = "deleting-staged"
	StateCompressing      State = "compressing"
	StateUploading        State = "uploading"
	StateInstalling       State = "installing"
	StateDone             State = "done"
	StateAborted          State = "aborted"
	StateFailed           State = "failed"
)

// Event is a progress report. Current and Total count bytes while
// uploading and steps otherwise.
type Event struct {
	State   State
	Message string
	Current int64
	Total   int64
}

// Observer receives progress events. Events are advisory; the workflow
// never depends on what an observer does with them.
type Observer interface {
	Progress(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Progress(e Event) { f(e) }

// Conflict describes an installed package that is not older than the one
// being published.
type Conflict struct {
	Name             string
	InstalledVersion string
	LocalVersion     string
	// Comparison is 0 when the versions are equal and -1 when the installed
	// version is greater.
	Comparison int
}

// Approver decides whether a Conflict may be overwritten.
type Approver interface {
	Approve(ctx context.Context, c Conflict) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, c Conflict) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, c Conflict) (bool, error) { return f(ctx, c) }

// Remote is the package lifecycle API of the target instance.
type Remote interface {
	AccessToken(ctx context.Context) (string, error)
	InstalledPackage(ctx context.Context, name string) (*sugar.Package, error)
	StagedPackage(ctx context.Context, name string) (*sugar.Package, error)
	UninstallPackage(ctx context.Context, id string) error
	DeleteStagedPackage(ctx context.Context, name string) error
	UploadPackage(ctx context.Context, filename string, r io.Reader, size int64, onProgress sugar.ProgressFunc) (string, error)
	InstallPackage(ctx context.Context, installID string) error
}

// Artifact writes the package archive to a path.
type Artifact interface {
	Compress(dest string) (int, error)
}

// Target names the package being published and its local version.
type Target struct {
	Name    string
	Version string
}

// Status is the terminal result of a run.
type Status int

const (
	StatusInstalled Status = iota
	StatusAborted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInstalled:
		return "installed"
	case StatusAborted:
		return "aborted"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is what a run ends with. Err and State are set only for failures;
// State is the step that failed.
type Outcome struct {
	Status  Status
	Name    string
	Version string
	Reason  string
	State   State
	Err     error
}
