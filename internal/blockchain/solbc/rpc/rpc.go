// internal/blockchain/solbc/rpc/rpc.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Основные константы
const (
	DefaultRetries    = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultTimeout    = 10 * time.Second
)

// Options bounds a single logical RPC call.
type Options struct {
	// Timeout covers all attempts of one call.
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	// Observer, if set, receives the outcome of every logical call.
	Observer func(method string, elapsed time.Duration, err error)
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// Pool rotates requests across RPC nodes and retries transient failures.
type Pool struct {
	nodes   []*solanarpc.Client
	urls    []string
	current int
	mu      sync.Mutex
	opts    Options
	logger  *zap.Logger
}

// NewPool создает пул клиентов для списка URL
func NewPool(urls []string, opts Options, logger *zap.Logger) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}

	nodes := make([]*solanarpc.Client, len(urls))
	for i, url := range urls {
		nodes[i] = solanarpc.New(url)
	}

	return &Pool{
		nodes:  nodes,
		urls:   append([]string(nil), urls...),
		opts:   opts.withDefaults(),
		logger: logger.Named("rpc-pool"),
	}, nil
}

// next returns the current node and advances the cursor.
func (p *Pool) next() (*solanarpc.Client, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	node, url := p.nodes[p.current], p.urls[p.current]
	p.current = (p.current + 1) % len(p.nodes)
	return node, url
}

// Execute runs operation against the pool under one overall timeout. Each
// failed attempt moves to the next node; non-retryable errors stop at once.
func (p *Pool) Execute(ctx context.Context, method string, operation func(context.Context, *solanarpc.Client) error) error {
	start := time.Now()
	err := p.execute(ctx, method, operation)
	if p.opts.Observer != nil {
		p.opts.Observer(method, time.Since(start), err)
	}
	return err
}

func (p *Pool) execute(ctx context.Context, method string, operation func(context.Context, *solanarpc.Client) error) error {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opts.RetryDelay
	policy.MaxInterval = p.opts.RetryDelay * 10

	notify := func(err error, d time.Duration) {
		p.logger.Debug("RPC request failed, trying next node",
			zap.String("method", method),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	_, err := backoff.Retry(callCtx, func() (struct{}, error) {
		node, url := p.next()
		if err := operation(callCtx, node); err != nil {
			wrapped := NewError(err, url, method)
			if !IsRetryableError(err) {
				return struct{}{}, backoff.Permanent(wrapped)
			}
			return struct{}{}, wrapped
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(p.opts.Retries+1)),
		backoff.WithNotify(notify))

	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s: %w", ErrTimeout, method, p.opts.Timeout, err)
	}
	return err
}

// URLs returns the configured node URLs.
func (p *Pool) URLs() []string {
	return append([]string(nil), p.urls...)
}
