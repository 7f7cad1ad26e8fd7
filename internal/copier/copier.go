package copier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"time"
)

const copyBufferSize = 32 * 1024

// Item describes one file to copy and where it lands.
type Item struct {
	Camera     int
	SourcePath string
	DestPath   string
}

// Update is a point-in-time progress report for the whole batch.
type Update struct {
	Percent     int
	FileIndex   int
	TotalFiles  int
	CurrentFile string
	CopiedBytes int64
	TotalBytes  int64
}

// Options tunes copy behavior.
type Options struct {
	// Verify compares SHA-256 checksums of the source and written streams.
	Verify bool
	// Interval throttles progress updates. Zero means every buffer flush.
	Interval time.Duration
}

// Task is one in-flight batch copy. Updates are delivered on a channel that
// closes when the copy finishes; Err reports the terminal outcome once Done
// is closed.
type Task struct {
	updates chan Update
	done    chan struct{}
	cancel  context.CancelFunc
	err     error
}

// Start launches the batch copy on its own goroutine. The items' byte total
// is measured up front so percent values cover the whole batch.
func Start(ctx context.Context, items []Item, opts Options) *Task {
	runCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		updates: make(chan Update, 16),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go task.run(runCtx, items, opts)
	return task
}

// Updates returns the progress stream. The channel closes when the task
// finishes, before Done is closed.
func (t *Task) Updates() <-chan Update {
	return t.updates
}

// Done is closed once the terminal outcome is available via Err.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the terminal error, or nil on success. Only valid after Done
// is closed.
func (t *Task) Err() error {
	return t.err
}

// Cancel aborts the copy. The task still terminates through Done with a
// context error.
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) run(ctx context.Context, items []Item, opts Options) {
	defer close(t.done)
	defer close(t.updates)

	t.err = t.copyAll(ctx, items, opts)
}

func (t *Task) copyAll(ctx context.Context, items []Item, opts Options) error {
	if len(items) == 0 {
		return fmt.Errorf("no files to copy")
	}

	var totalBytes int64
	for _, item := range items {
		info, err := os.Stat(item.SourcePath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", item.SourcePath, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", item.SourcePath)
		}
		totalBytes += info.Size()
	}

	var copiedBytes int64
	lastEmit := time.Time{}

	for index, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(item.DestPath), 0o755); err != nil {
			return fmt.Errorf("create destination folder for %s: %w", filepath.Base(item.DestPath), err)
		}

		emit := func(copied int64, force bool) {
			now := time.Now()
			if !force && opts.Interval > 0 && now.Sub(lastEmit) < opts.Interval {
				return
			}
			lastEmit = now
			t.emit(Update{
				Percent:     overallPercent(copiedBytes+copied, totalBytes),
				FileIndex:   index + 1,
				TotalFiles:  len(items),
				CurrentFile: filepath.Base(item.SourcePath),
				CopiedBytes: copiedBytes + copied,
				TotalBytes:  totalBytes,
			})
		}

		written, err := copyOne(ctx, item, opts.Verify, emit)
		if err != nil {
			return fmt.Errorf("copy %s: %w", filepath.Base(item.SourcePath), err)
		}
		copiedBytes += written
		emit(0, true)
	}

	return nil
}

func (t *Task) emit(update Update) {
	select {
	case t.updates <- update:
	default:
		// A slow consumer drops intermediate ticks rather than stalling the copy.
	}
}

func copyOne(ctx context.Context, item Item, verify bool, emit func(copied int64, force bool)) (int64, error) {
	in, err := os.Open(item.SourcePath)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.Create(item.DestPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = out.Close()
	}()

	var srcHasher, dstHasher hash.Hash
	var reader io.Reader = in
	var writer io.Writer = out
	if verify {
		srcHasher = sha256.New()
		dstHasher = sha256.New()
		reader = io.TeeReader(in, srcHasher)
		writer = io.MultiWriter(out, dstHasher)
	}

	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			_ = os.Remove(item.DestPath)
			return written, err
		}
		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, writeErr := writer.Write(buf[:n]); writeErr != nil {
				_ = os.Remove(item.DestPath)
				return written, writeErr
			}
			written += int64(n)
			emit(written, false)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = os.Remove(item.DestPath)
			return written, readErr
		}
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(item.DestPath)
		return written, err
	}

	if written != info.Size() {
		_ = os.Remove(item.DestPath)
		return written, fmt.Errorf("size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if verify && !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(item.DestPath)
		return written, fmt.Errorf("hash mismatch: file corrupted during copy")
	}

	return written, nil
}

func overallPercent(copied, total int64) int {
	if total <= 0 {
		return 100
	}
	pct := int(copied * 100 / total)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
