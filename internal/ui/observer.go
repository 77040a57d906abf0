package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/PraveenPrabhuT/sugar-pack/internal/publish"
)

var (
	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	noteStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

const barWidth = 40

// ProgressObserver renders publish events. On a terminal the upload is drawn
// as a progress bar redrawn in place; otherwise only whole lines are written.
// Terminal states are left to the caller, which prints the outcome.
//
// Upload events arrive from the transport goroutine, so Progress is safe for
// concurrent use.
type ProgressObserver struct {
	mu    sync.Mutex
	out   io.Writer
	tty   bool
	bar   progress.Model
	state publish.State
	inBar bool
}

// NewProgressObserver writes to out. tty enables in-place redraws.
func NewProgressObserver(out io.Writer, tty bool) *ProgressObserver {
	return &ProgressObserver{
		out: out,
		tty: tty,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage()),
	}
}

func (o *ProgressObserver) Progress(e publish.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch e.State {
	case publish.StateDone, publish.StateAborted, publish.StateFailed:
		o.endBar()
		o.state = e.State
		return
	}

	if e.State == publish.StateUploading && e.Current > 0 {
		o.upload(e)
		return
	}

	o.endBar()
	if e.State == o.state {
		fmt.Fprintln(o.out, "⚠️  "+noteStyle.Render(e.Message))
		return
	}
	o.state = e.State
	fmt.Fprintln(o.out, "⏳ "+stepStyle.Render(e.Message))
}

func (o *ProgressObserver) upload(e publish.Event) {
	if !o.tty {
		if e.Total > 0 && e.Current >= e.Total {
			fmt.Fprintf(o.out, "📦 Uploaded %s\n", formatBytes(e.Total))
		}
		return
	}

	pct := 0.0
	if e.Total > 0 {
		pct = float64(e.Current) / float64(e.Total)
	}
	if pct > 1 {
		pct = 1
	}
	counts := countStyle.Render(fmt.Sprintf("%s / %s", formatBytes(e.Current), formatBytes(e.Total)))
	fmt.Fprintf(o.out, "\r%s %3.0f%% %s", o.bar.ViewAs(pct), pct*100, counts)
	o.inBar = true
}

func (o *ProgressObserver) endBar() {
	if o.inBar {
		fmt.Fprintln(o.out)
		o.inBar = false
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
