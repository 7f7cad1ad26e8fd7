package progress

import (
	"log/slog"
	"sync"

	"baker/internal/copier"
	"baker/internal/logging"
)

// Events receives the translated copy notifications. Callbacks are invoked
// sequentially from a single goroutine, in the order the copy engine
// reported them; exactly one of OnComplete or OnError fires per bridge.
type Events struct {
	OnProgress func(percent int)
	OnComplete func()
	OnError    func(message string)
}

// Source is the slice of a copy task the bridge consumes. *copier.Task
// satisfies it.
type Source interface {
	Updates() <-chan copier.Update
	Done() <-chan struct{}
	Err() error
}

// Bridge subscribes to a copy task and forwards its updates until the task
// reaches a terminal outcome or the bridge is closed. Closing stops all
// forwarding, including the terminal signal, so a disposed owner is never
// called back.
type Bridge struct {
	mu       sync.Mutex
	closed   bool
	terminal bool

	done chan struct{}
}

// NewBridge starts forwarding the task's updates to ev.
func NewBridge(task Source, ev Events, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	b := &Bridge{done: make(chan struct{})}
	go b.forward(task, ev, logger)
	return b
}

// Close tears the subscription down. Safe to call multiple times and after
// the task has finished. It does not cancel the underlying copy.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Wait blocks until the forwarding goroutine has exited.
func (b *Bridge) Wait() {
	<-b.done
}

func (b *Bridge) forward(task Source, ev Events, logger *slog.Logger) {
	defer close(b.done)

	for update := range task.Updates() {
		if !b.deliverable() {
			continue
		}
		if ev.OnProgress != nil {
			ev.OnProgress(update.Percent)
		}
	}

	<-task.Done()

	if !b.markTerminal() {
		logger.Debug("copy terminal signal dropped",
			logging.String(logging.FieldEventType, "copy_terminal_dropped"),
		)
		return
	}

	if err := task.Err(); err != nil {
		if ev.OnError != nil {
			ev.OnError(err.Error())
		}
		return
	}
	if ev.OnComplete != nil {
		ev.OnComplete()
	}
}

func (b *Bridge) deliverable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && !b.terminal
}

// markTerminal flips the one-shot terminal guard. It returns false when the
// bridge is already closed or a terminal signal was already delivered.
func (b *Bridge) markTerminal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.terminal {
		return false
	}
	b.terminal = true
	return true
}
