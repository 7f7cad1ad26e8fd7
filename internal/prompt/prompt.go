// Package prompt asks for confirmation at the end of a build and opens
// the finished project folder in the system file manager.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"baker/internal/logging"
)

// Prompter reads a yes/no answer from its input stream. When the stream is
// not a terminal the prompt is skipped entirely so scripted runs never hang.
type Prompter struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool
	OpenFunc    func(ctx context.Context, path string) error

	logger *slog.Logger

	readOnce sync.Once
	lines    chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// New returns a Prompter wired to stdin/stdout with terminal detection.
func New(logger *slog.Logger) *Prompter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Prompter{
		In:          os.Stdin,
		Out:         os.Stdout,
		Interactive: isatty.IsTerminal(os.Stdin.Fd()),
		OpenFunc:    OpenFolder,
		logger:      logger,
	}
}

// Confirm shows the message and waits for a y/N answer. It reports false
// without error when the session is non-interactive.
func (p *Prompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	if !p.Interactive {
		p.logger.Info("skipping confirmation prompt in non-interactive session")
		return false, nil
	}
	if title != "" {
		fmt.Fprintln(p.Out, title)
	}
	fmt.Fprintf(p.Out, "%s [y/N]: ", message)

	select {
	case <-ctx.Done():
		// The reader goroutine stays parked on the shared channel; a line
		// typed for an abandoned prompt is delivered to the next Confirm
		// instead of leaking a blocked read per call.
		return false, ctx.Err()
	case res := <-p.readLines():
		if res.err != nil {
			return false, res.err
		}
		line := strings.ToLower(strings.TrimSpace(res.line))
		return line == "y" || line == "yes", nil
	}
}

// readLines starts the single input-reading goroutine on first use. The
// channel is closed once the stream ends, so Confirm keeps answering "no"
// on a closed stdin rather than blocking.
func (p *Prompter) readLines() <-chan lineResult {
	p.readOnce.Do(func() {
		p.lines = make(chan lineResult)
		reader := bufio.NewReader(p.In)
		go func() {
			defer close(p.lines)
			for {
				line, err := reader.ReadString('\n')
				if err != nil && err != io.EOF {
					p.lines <- lineResult{err: err}
					return
				}
				p.lines <- lineResult{line: line}
				if err == io.EOF {
					return
				}
			}
		}()
	})
	return p.lines
}

// Completion asks whether to open the finished project and opens it on a
// yes. A failure to open is logged but never surfaced as a build failure.
func (p *Prompter) Completion(ctx context.Context, title, message, destination string) error {
	ok, err := p.Confirm(ctx, title, message)
	if err != nil {
		return err
	}
	if !ok || destination == "" {
		return nil
	}
	open := p.OpenFunc
	if open == nil {
		open = OpenFolder
	}
	if err := open(ctx, destination); err != nil {
		p.logger.Warn("could not open project folder",
			logging.String("path", destination), logging.Error(err))
	}
	return nil
}

// OpenFolder launches the platform file manager on the given path.
func OpenFolder(ctx context.Context, path string) error {
	var name string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name = "explorer"
	default:
		name = "xdg-open"
	}
	cmd := exec.CommandContext(ctx, name, path)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Start()
}
