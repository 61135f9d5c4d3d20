// internal/bot/shutdown.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 30 * time.Second

var errShutdownTimeout = errors.New("shutdown timeout")

// CloseFunc adapts a function to io.Closer.
type CloseFunc func() error

func (f CloseFunc) Close() error { return f() }

type stopper struct {
	name string
	io.Closer
}

// ShutdownHandler stops components in the reverse order they were started.
// One deadline covers the whole sequence.
type ShutdownHandler struct {
	mu      sync.Mutex
	stack   []stopper
	timeout time.Duration
	logger  *zap.Logger
}

func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &ShutdownHandler{timeout: timeout, logger: logger}
}

// Add pushes closer onto the stack.
func (sh *ShutdownHandler) Add(name string, closer io.Closer) {
	sh.mu.Lock()
	sh.stack = append(sh.stack, stopper{name: name, Closer: closer})
	sh.mu.Unlock()
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, CloseFunc(fn))
}

// take empties the stack and returns it newest first.
func (sh *ShutdownHandler) take() []stopper {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	stack := sh.stack
	sh.stack = nil
	slices.Reverse(stack)
	return stack
}

// Shutdown drains the stack. A component that overruns the deadline is left
// running and the rest are skipped; a second call has nothing to do.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	stack := sh.take()
	if len(stack) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(stack)))
	started := time.Now()

	var errs []error
	for _, s := range stack {
		err := stop(ctx, s)
		if err == nil {
			continue
		}
		sh.logger.Error("Failed to shutdown service", zap.String("service", s.name), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		if errors.Is(err, errShutdownTimeout) {
			break
		}
	}

	if err := errors.Join(errs...); err != nil {
		sh.logger.Warn("Shutdown completed with errors",
			zap.Int("failed", len(errs)),
			zap.Duration("took", time.Since(started)))
		return err
	}
	sh.logger.Info("Graceful shutdown completed", zap.Duration("took", time.Since(started)))
	return nil
}

// stop closes s unless ctx expires first.
func stop(ctx context.Context, s stopper) error {
	result := make(chan error, 1)
	go func() { result <- s.Close() }()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return errShutdownTimeout
	}
}
