package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/PraveenPrabhuT/sugar-pack/internal/publish"
)

// PromptApprover asks on the terminal before an installed package is
// overwritten. An empty answer means yes.
type PromptApprover struct {
	// AutoApprove answers yes without asking.
	AutoApprove bool
	Stdin       io.ReadCloser
	Stdout      io.Writer
}

// Approve implements publish.Approver.
func (a *PromptApprover) Approve(ctx context.Context, c publish.Conflict) (bool, error) {
	if a.AutoApprove {
		return true, nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt: question(c),
		Stdin:  a.Stdin,
		Stdout: a.Stdout,
	})
	if err != nil {
		return false, fmt.Errorf("open prompt: %w", err)
	}
	defer rl.Close()

	type answer struct {
		line string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		line, err := rl.Readline()
		done <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		rl.Close()
		return false, ctx.Err()
	case ans := <-done:
		if errors.Is(ans.err, readline.ErrInterrupt) || errors.Is(ans.err, io.EOF) {
			return false, nil
		}
		if ans.err != nil {
			return false, ans.err
		}
		return parseAnswer(ans.line, true), nil
	}
}

func question(c publish.Conflict) string {
	diff := "a greater"
	if c.Comparison == 0 {
		diff = "the same"
	}
	return fmt.Sprintf("The package currently installed has %s version. Proceed anyways? [Y/n] ", diff)
}

// parseAnswer reads a yes/no reply. Anything starting with y is yes, an
// empty reply is def, everything else is no.
func parseAnswer(line string, def bool) bool {
	s := strings.ToLower(strings.TrimSpace(line))
	if s == "" {
		return def
	}
	return strings.HasPrefix(s, "y")
}
