package parser

import (
	"testing"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain"
	"github.com/rovshanmuradov/raffle-monitor/internal/raffle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	winnerAddr  = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	payerAddr   = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	programAddr = "GUXx1x2kMBxJwLmyxWJMaWAqMhJHx7zabDqHdv7AFFLE"
)

var now = time.Unix(1_700_000_000, 0)

func txWithLogs(logs ...string) *blockchain.Transaction {
	return &blockchain.Transaction{Signature: "5VERYlongSignatureValue", LogMessages: logs}
}

func newTestExtractor() *Extractor {
	return NewExtractor(DefaultSettings(), WithPicker(func(int) int { return 0 }))
}

func TestExtractCreationScenario(t *testing.T) {
	e := newTestExtractor()
	tx := txWithLogs(
		"Program log: Instruction: InitializeRaffle",
		"Program log: Raffle 'Summer Splash' (ID: 7F-SOL-042) initialized",
		"Program log: ticket_price: 75000000",
	)

	ev, ok := e.ExtractCreation(tx, now)
	require.True(t, ok)

	assert.Equal(t, "7F-SOL-042", ev.Raffle.ID)
	assert.Equal(t, "Summer Splash", ev.Raffle.Name)
	assert.Equal(t, uint64(75_000_000), ev.Raffle.TicketPrice)
	assert.Equal(t, "initialized-line", ev.Provenance["id"])
	assert.Equal(t, "lamports", ev.Provenance["price"])
}

func TestExtractCreationDefaults(t *testing.T) {
	e := newTestExtractor()
	tx := txWithLogs(
		"Program log: Raffle 'Quiet' (ID: 7F-SOL-001) initialized with ticket price: 0 SOL",
		"Program log: Platform fee: 5%",
	)

	ev, ok := e.ExtractCreation(tx, now)
	require.True(t, ok)

	assert.Equal(t, uint64(50_000_000), ev.Raffle.TicketPrice)
	assert.Equal(t, "default", ev.Provenance["price"])
	assert.Equal(t, 100, ev.Raffle.MaxTickets)
	assert.Equal(t, now.Add(24*time.Hour).Unix(), ev.Raffle.EndTime)
	assert.Equal(t, DefaultDescription, ev.Raffle.Description)
	assert.Zero(t, ev.Raffle.TicketsSold)
}

func TestExtractCreationPriceTiers(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   uint64
		source string
	}{
		{"ticket_price lamports", "ticket_price=2000000", 2_000_000, "lamports"},
		{"bare lamports", "cost 3000000 lamports", 3_000_000, "lamports"},
		{"decimal sol", "ticket price: 0.075 SOL", 75_000_000, "sol"},
		{"ticket_price in sol", "ticket_price: 1 SOL", 1_000_000_000, "sol"},
		{"below floor", "ticket_price: 500", 50_000_000, "default"},
		{"zero sol", "ticket price: 0 SOL", 50_000_000, "default"},
		{"nothing", "hello", 50_000_000, "default"},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := e.ExtractCreation(txWithLogs("Program log: ID: 7F-SOL-010", "Program log: "+tt.line), now)
			require.True(t, ok)
			assert.Equal(t, tt.want, ev.Raffle.TicketPrice)
			assert.Equal(t, tt.source, ev.Provenance["price"])
		})
	}
}

func TestExtractCreationOptionalFields(t *testing.T) {
	e := newTestExtractor()
	bt := now.Unix()
	tx := txWithLogs(
		"Program log: ID: 7F-SOL-020",
		"Program log: Max tickets: 250",
		"Program log: duration: 2 hours",
		"Program log: description: Weekend draw",
	)
	tx.BlockTime = &bt

	ev, ok := e.ExtractCreation(tx, now.Add(time.Hour))
	require.True(t, ok)

	assert.Equal(t, DefaultCreationName, ev.Raffle.Name)
	assert.Equal(t, "bare-id", ev.Provenance["id"])
	assert.Equal(t, 250, ev.Raffle.MaxTickets)
	assert.Equal(t, now.Add(2*time.Hour).Unix(), ev.Raffle.EndTime, "duration is relative to block time")
	assert.Equal(t, "Weekend draw", ev.Raffle.Description)

	tx = txWithLogs("Program log: ID: 7F-SOL-021", "Program log: ends at 1700090000", "Program log: total 40 tickets")
	ev, ok = e.ExtractCreation(tx, now)
	require.True(t, ok)
	assert.Equal(t, int64(1_700_090_000), ev.Raffle.EndTime)
	assert.Equal(t, 40, ev.Raffle.MaxTickets)
}

func TestExtractCreationWithoutID(t *testing.T) {
	e := newTestExtractor()
	_, ok := e.ExtractCreation(txWithLogs("Program log: Instruction: InitializeRaffle"), now)
	assert.False(t, ok)
}

func registryWithEnded(t *testing.T, id string, endTime time.Time) *raffle.Registry {
	t.Helper()
	reg := raffle.NewRegistry(10 * time.Minute)
	require.True(t, reg.Track(raffle.Raffle{
		ID:          id,
		Name:        "Summer Splash",
		TicketPrice: 100_000_000,
		EndTime:     endTime.Unix(),
		TicketsSold: 10,
	}))
	reg.Expire(now)
	return reg
}

func TestExtractWinnerFallsBackToRecentlyEnded(t *testing.T) {
	e := newTestExtractor()
	reg := registryWithEnded(t, "7F-SOL-042", now.Add(-120*time.Second))

	ev, ok := e.ExtractWinner(txWithLogs("Program log: Instruction: DrawWinner"), reg, now)
	require.True(t, ok)

	assert.Equal(t, "7F-SOL-042", ev.RaffleID)
	assert.Equal(t, "recently-ended", ev.Provenance["id"])
	assert.False(t, ev.Unattributed)
	assert.Equal(t, "Summer Splash", ev.RaffleName)
	// 100_000_000 * 10 minus 5%
	assert.Equal(t, uint64(950_000_000), ev.Prize)
	assert.Equal(t, "estimate", ev.Provenance["prize"])
}

func TestExtractWinnerIDTiers(t *testing.T) {
	reg := raffle.NewRegistry(10 * time.Minute)
	reg.Track(raffle.Raffle{ID: "7F-SOL-100", Name: "Soon", EndTime: now.Add(time.Hour).Unix()})
	reg.Track(raffle.Raffle{ID: "7F-SOL-101", Name: "Later", EndTime: now.Add(2 * time.Hour).Unix()})

	tests := []struct {
		name   string
		logs   []string
		reg    Registry
		wantID string
		source string
	}{
		{"raffle id", []string{"Program log: Raffle ID: 7F-SOL-777 winner picked"}, reg, "7F-SOL-777", "explicit-id"},
		{"rejects sold", []string{"Program log: ID: sold", "Program log: winner for 7F-SOL-778"}, reg, "7F-SOL-778", "id-shape"},
		{"name match", []string{"Program log: Winner drawn for raffle 'Later': ticket #3"}, reg, "7F-SOL-101", "name-match"},
		{"soonest active", []string{"Program log: Instruction: DrawWinner"}, reg, "7F-SOL-100", "soonest-active"},
		{"synthesized", []string{"Program log: Instruction: DrawWinner"}, raffle.NewRegistry(time.Minute), "UNATTRIBUTED-5VERYlon", "synthesized"},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := e.ExtractWinner(txWithLogs(tt.logs...), tt.reg, now)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, ev.RaffleID)
			assert.Equal(t, tt.source, ev.Provenance["id"])
			assert.Equal(t, tt.source == "synthesized", ev.Unattributed)
		})
	}
}

func TestExtractWinnerWithoutSynthesis(t *testing.T) {
	s := DefaultSettings()
	s.SynthesizeIDs = false
	e := NewExtractor(s)

	_, ok := e.ExtractWinner(txWithLogs("Program log: Instruction: DrawWinner"), raffle.NewRegistry(time.Minute), now)
	assert.False(t, ok)
}

func TestExtractWinnerAddressTiers(t *testing.T) {
	e := newTestExtractor()
	reg := raffle.NewRegistry(time.Minute)

	t.Run("winner line", func(t *testing.T) {
		ev, _ := e.ExtractWinner(txWithLogs(
			"Program "+programAddr+" invoke [1]",
			"Program log: Winner: "+winnerAddr,
		), reg, now)
		assert.Equal(t, winnerAddr, ev.Winner)
		assert.Equal(t, "winner-line", ev.Provenance["winner"])
	})

	t.Run("claim line", func(t *testing.T) {
		ev, _ := e.ExtractWinner(txWithLogs("Program log: Prize of 950000000 lamports claimed by "+winnerAddr), reg, now)
		assert.Equal(t, winnerAddr, ev.Winner)
		assert.Equal(t, "claim-line", ev.Provenance["winner"])
		assert.Equal(t, uint64(950_000_000), ev.Prize)
		assert.Equal(t, "prize-lamports", ev.Provenance["prize"])
	})

	t.Run("runtime lines are ignored", func(t *testing.T) {
		tx := txWithLogs(
			"Program "+programAddr+" invoke [1]",
			"Program log: Winner drawn: Ticket #7",
		)
		tx.AccountKeys = []string{payerAddr, winnerAddr}
		tx.PreBalances = []uint64{5_000_000_000, 1_000}
		tx.PostBalances = []uint64{4_000_000_000, 2_000_001_000}

		ev, _ := e.ExtractWinner(tx, reg, now)
		assert.Equal(t, winnerAddr, ev.Winner)
		assert.Equal(t, "balance-increase", ev.Provenance["winner"])
		assert.Equal(t, uint64(2_000_000_000), ev.Prize)
		assert.Equal(t, "balance-delta", ev.Provenance["prize"])
		assert.Equal(t, 7, ev.TicketNumber)
	})

	t.Run("random account", func(t *testing.T) {
		tx := txWithLogs("Program log: Instruction: DrawWinner")
		tx.AccountKeys = []string{payerAddr}
		tx.PreBalances = []uint64{10}
		tx.PostBalances = []uint64{5}

		ev, _ := e.ExtractWinner(tx, reg, now)
		assert.Equal(t, payerAddr, ev.Winner)
		assert.Equal(t, "random-account", ev.Provenance["winner"])
		assert.Equal(t, uint64(500_000_000), ev.Prize)
		assert.Equal(t, "default", ev.Provenance["prize"])
		assert.Equal(t, DefaultWinnerName, ev.RaffleName)
	})

	t.Run("placeholder", func(t *testing.T) {
		ev, _ := e.ExtractWinner(txWithLogs("Program log: Instruction: DrawWinner"), reg, now)
		assert.Equal(t, UnknownWinner, ev.Winner)
		assert.Equal(t, "placeholder", ev.Provenance["winner"])
	})
}

func TestExtractWinnerPrizeSOL(t *testing.T) {
	e := newTestExtractor()
	ev, _ := e.ExtractWinner(txWithLogs("Program log: ID: 7F-SOL-003 prize: 1.5 SOL"), raffle.NewRegistry(time.Minute), now)
	assert.Equal(t, uint64(1_500_000_000), ev.Prize)
	assert.Equal(t, "prize-sol", ev.Provenance["prize"])
}
