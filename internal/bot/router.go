package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// HandlerFunc handles one inbound event.
type HandlerFunc func(ctx context.Context, ev Event)

// Router demultiplexes inbound events by kind.
type Router struct {
	mu       sync.RWMutex
	handlers map[Kind]HandlerFunc
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewRouter creates an empty Router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		handlers: make(map[Kind]HandlerFunc),
		logger:   logger,
	}
}

// Handle registers h for events of the given kind, replacing any previous handler.
func (r *Router) Handle(kind Kind, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Dispatch starts the handler for ev in a new goroutine and returns
// immediately. It reports false when no handler is registered for ev.Kind.
func (r *Router) Dispatch(ctx context.Context, ev Event) bool {
	r.mu.RLock()
	h, ok := r.handlers[ev.Kind]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.recoverPanic(ev)
		h(ctx, ev)
	}()
	return true
}

// Wait blocks until every dispatched handler has returned or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for handlers: %w", ctx.Err())
	}
}

func (r *Router) recoverPanic(ev Event) {
	if err := recover(); err != nil {
		r.logger.Error("panic recovered",
			slog.String("kind", string(ev.Kind)),
			slog.Int64("chat_id", ev.ChatID),
			slog.Any("error", err),
			slog.String("stack", string(debug.Stack())),
		)
	}
}
