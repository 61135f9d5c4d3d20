package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPool(t *testing.T, urls []string, opts Options) *Pool {
	t.Helper()
	p, err := NewPool(urls, opts, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestNewPoolRequiresNodes(t *testing.T) {
	_, err := NewPool(nil, Options{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoRPCNodes)
}

func TestExecuteRetriesTransientErrorsAcrossNodes(t *testing.T) {
	p := newTestPool(t, []string{"http://node-a", "http://node-b"}, Options{
		Retries:    2,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	})

	var seen []*solanarpc.Client
	err := p.Execute(context.Background(), "getTransaction", func(_ context.Context, c *solanarpc.Client) error {
		seen = append(seen, c)
		if len(seen) < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Same(t, p.nodes[0], seen[0])
	assert.Same(t, p.nodes[1], seen[1])
	assert.Same(t, p.nodes[0], seen[2])
}

func TestExecuteStopsOnPermanentError(t *testing.T) {
	p := newTestPool(t, []string{"http://node-a"}, Options{Retries: 3, RetryDelay: time.Millisecond})

	calls := 0
	err := p.Execute(context.Background(), "getTransaction", func(context.Context, *solanarpc.Client) error {
		calls++
		return solanarpc.ErrNotFound
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, solanarpc.ErrNotFound)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "http://node-a", rpcErr.NodeURL)
	assert.Equal(t, "getTransaction", rpcErr.Method)
}

func TestExecuteGivesUpAfterRetries(t *testing.T) {
	p := newTestPool(t, []string{"http://node-a"}, Options{Retries: 1, RetryDelay: time.Millisecond})

	calls := 0
	err := p.Execute(context.Background(), "getSignaturesForAddress", func(context.Context, *solanarpc.Client) error {
		calls++
		return errors.New("503 service unavailable")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteTimeout(t *testing.T) {
	p := newTestPool(t, []string{"http://node-a"}, Options{Timeout: 20 * time.Millisecond, Retries: 0})

	err := p.Execute(context.Background(), "getTransaction", func(ctx context.Context, _ *solanarpc.Client) error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExecuteReportsToObserver(t *testing.T) {
	var methods []string
	var errs []error
	p := newTestPool(t, []string{"http://node-a"}, Options{
		RetryDelay: time.Millisecond,
		Observer: func(method string, elapsed time.Duration, err error) {
			methods = append(methods, method)
			errs = append(errs, err)
			assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		},
	})

	_ = p.Execute(context.Background(), "getSignaturesForAddress", func(context.Context, *solanarpc.Client) error { return nil })
	_ = p.Execute(context.Background(), "getTransaction", func(context.Context, *solanarpc.Client) error { return solanarpc.ErrNotFound })

	assert.Equal(t, []string{"getSignaturesForAddress", "getTransaction"}, methods)
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], solanarpc.ErrNotFound)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", solanarpc.ErrNotFound, false},
		{"canceled", context.Canceled, false},
		{"rate limit sentinel", NewError(ErrRateLimit, "u", "m"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"too many requests", errors.New("(429) Too Many Requests"), true},
		{"invalid params", errors.New("invalid params: signature"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}
