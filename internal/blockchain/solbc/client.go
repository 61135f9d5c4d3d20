// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain"
	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain/solbc/rpc"
	"go.uber.org/zap"
)

// Client – тонкий адаптер над solana-go, реализующий blockchain.Ledger.
type Client struct {
	pool       *rpc.Pool
	commitment solanarpc.CommitmentType
	logger     *zap.Logger
}

var _ blockchain.Ledger = (*Client)(nil)

// NewClient создаёт новый клиент, принимая пул узлов и логгер через dependency injection.
func NewClient(pool *rpc.Pool, logger *zap.Logger) *Client {
	return &Client{
		pool:       pool,
		commitment: solanarpc.CommitmentConfirmed,
		logger:     logger.Named("solbc-client"),
	}
}

// ListRecentSignatures returns the newest signatures that touched program.
func (c *Client) ListRecentSignatures(ctx context.Context, program string, limit int) ([]blockchain.SignatureInfo, error) {
	pk, err := solana.PublicKeyFromBase58(program)
	if err != nil {
		return nil, fmt.Errorf("invalid program address %q: %w", program, err)
	}

	var result []*solanarpc.TransactionSignature
	err = c.pool.Execute(ctx, "getSignaturesForAddress", func(ctx context.Context, node *solanarpc.Client) error {
		var err error
		result, err = node.GetSignaturesForAddressWithOpts(ctx, pk, &solanarpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Commitment: c.commitment,
		})
		return err
	})
	if err != nil {
		c.logger.Debug("ListRecentSignatures error",
			zap.String("program", program),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", blockchain.ErrConnectivity, err)
	}

	out := make([]blockchain.SignatureInfo, 0, len(result))
	for _, s := range result {
		if s == nil {
			continue
		}
		info := blockchain.SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			Failed:    s.Err != nil,
		}
		if s.BlockTime != nil {
			bt := int64(*s.BlockTime)
			info.BlockTime = &bt
		}
		out = append(out, info)
	}
	return out, nil
}

// GetTransaction fetches and flattens one confirmed transaction.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*blockchain.Transaction, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signature %q: %w", blockchain.ErrUndecodable, signature, err)
	}

	maxVersion := uint64(0)
	var result *solanarpc.GetTransactionResult
	err = c.pool.Execute(ctx, "getTransaction", func(ctx context.Context, node *solanarpc.Client) error {
		var err error
		result, err = node.GetTransaction(ctx, sig, &solanarpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     c.commitment,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		return err
	})
	switch {
	case errors.Is(err, solanarpc.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", blockchain.ErrTransactionNotFound, signature)
	case err != nil:
		c.logger.Debug("GetTransaction error",
			zap.String("signature", signature),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", blockchain.ErrConnectivity, err)
	case result == nil || result.Transaction == nil:
		return nil, fmt.Errorf("%w: %s", blockchain.ErrTransactionNotFound, signature)
	}

	decoded, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", blockchain.ErrUndecodable, signature, err)
	}

	var blockTime *int64
	if result.BlockTime != nil {
		bt := int64(*result.BlockTime)
		blockTime = &bt
	}
	return convertTransaction(signature, result.Slot, blockTime, decoded, result.Meta), nil
}

// convertTransaction flattens a decoded transaction. Account keys follow the
// runtime ordering: static keys, then loaded writable, then loaded readonly,
// which is the order balances are reported in.
func convertTransaction(
	signature string,
	slot uint64,
	blockTime *int64,
	tx *solana.Transaction,
	meta *solanarpc.TransactionMeta,
) *blockchain.Transaction {
	out := &blockchain.Transaction{
		Signature: signature,
		Slot:      slot,
		BlockTime: blockTime,
	}

	if tx != nil {
		for _, key := range tx.Message.AccountKeys {
			out.AccountKeys = append(out.AccountKeys, key.String())
		}
	}
	if meta == nil {
		return out
	}

	for _, key := range meta.LoadedAddresses.Writable {
		out.AccountKeys = append(out.AccountKeys, key.String())
	}
	for _, key := range meta.LoadedAddresses.ReadOnly {
		out.AccountKeys = append(out.AccountKeys, key.String())
	}

	out.LogMessages = append(out.LogMessages, meta.LogMessages...)
	out.PreBalances = append(out.PreBalances, meta.PreBalances...)
	out.PostBalances = append(out.PostBalances, meta.PostBalances...)
	out.Failed = meta.Err != nil
	return out
}
