// internal/blockchain/types.go
package blockchain

import (
	"context"
	"errors"
)

var (
	// ErrConnectivity wraps any failure to list or fetch from the ledger.
	ErrConnectivity = errors.New("ledger connectivity failure")
	// ErrTransactionNotFound is returned when the node has no record yet.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrUndecodable marks a record that will never parse.
	ErrUndecodable = errors.New("transaction undecodable")
)

// SignatureInfo is one entry of a program's signature history.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *int64 // unix seconds, nil when the node does not know it
	Failed    bool
}

// Transaction holds the parts of a confirmed transaction the monitor reads.
// AccountKeys is aligned with PreBalances/PostBalances.
type Transaction struct {
	Signature    string
	Slot         uint64
	BlockTime    *int64
	LogMessages  []string
	AccountKeys  []string
	PreBalances  []uint64
	PostBalances []uint64
	Failed       bool
}

// BalanceDelta is the lamport change of one account within a transaction.
type BalanceDelta struct {
	Account string
	Delta   int64
}

// BalanceDeltas returns post-pre for every account present in both arrays.
func (tx *Transaction) BalanceDeltas() []BalanceDelta {
	n := min(len(tx.PreBalances), len(tx.PostBalances), len(tx.AccountKeys))
	out := make([]BalanceDelta, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, BalanceDelta{
			Account: tx.AccountKeys[i],
			Delta:   int64(tx.PostBalances[i]) - int64(tx.PreBalances[i]),
		})
	}
	return out
}

// Ledger is the read side of the chain consumed by the monitor.
type Ledger interface {
	// ListRecentSignatures returns up to limit signatures for program, newest first.
	ListRecentSignatures(ctx context.Context, program string, limit int) ([]SignatureInfo, error)
	// GetTransaction fetches the full record for a signature. Errors wrap
	// ErrTransactionNotFound, ErrUndecodable or ErrConnectivity.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}
