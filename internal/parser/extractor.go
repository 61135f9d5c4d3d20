// internal/parser/extractor.go
package parser

import (
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain"
	"github.com/rovshanmuradov/raffle-monitor/internal/raffle"
)

const (
	programLogPrefix = "Program log: "

	DefaultCreationName = "New 7affle"
	DefaultDescription  = "A new raffle is available! Get your tickets now for a chance to win!"
	DefaultWinnerName   = "Raffle"
	UnknownWinner       = "unknown"
	UnattributedPrefix  = "UNATTRIBUTED-"
)

// Registry is the lifecycle state the extractor consults to disambiguate.
type Registry interface {
	Active(id string) (raffle.Raffle, bool)
	Ended(id string) (raffle.EndedRaffle, bool)
	MostRecentlyEnded() (raffle.EndedRaffle, bool)
	SoonestEnding() (raffle.Raffle, bool)
	FindByName(name string) (string, bool)
}

// Settings holds the documented fallbacks of the extraction cascades.
type Settings struct {
	TicketPrice    uint64 // lamports
	MinTicketPrice uint64
	MaxTickets     int
	Duration       time.Duration
	Prize          uint64
	MinPrizeDelta  uint64
	PlatformFee    float64
	// SynthesizeIDs enables the placeholder tier for unattributable winners.
	SynthesizeIDs bool
}

// DefaultSettings mirrors the deployed program's defaults.
func DefaultSettings() Settings {
	return Settings{
		TicketPrice:    50_000_000,
		MinTicketPrice: 1_000_000,
		MaxTickets:     100,
		Duration:       24 * time.Hour,
		Prize:          500_000_000,
		MinPrizeDelta:  1_000_000,
		PlatformFee:    0.05,
		SynthesizeIDs:  true,
	}
}

// CreationEvent is a successfully extracted raffle creation.
type CreationEvent struct {
	Raffle     raffle.Raffle
	Provenance map[string]string
}

// WinnerEvent is an extracted winner draw.
type WinnerEvent struct {
	Signature    string
	RaffleID     string
	RaffleName   string
	Winner       string
	Prize        uint64 // lamports
	TicketNumber int    // 0 when unknown
	Unattributed bool
	Provenance   map[string]string
}

type input struct {
	tx       *blockchain.Transaction
	logs     []string
	payloads []string
	base     time.Time
	reg      Registry
	raffleID string
}

func newInput(tx *blockchain.Transaction, reg Registry, now time.Time) *input {
	in := &input{tx: tx, logs: tx.LogMessages, base: now, reg: reg}
	if tx.BlockTime != nil {
		in.base = time.Unix(*tx.BlockTime, 0)
	}
	for _, l := range tx.LogMessages {
		if p, ok := strings.CutPrefix(l, programLogPrefix); ok {
			in.payloads = append(in.payloads, p)
		}
	}
	return in
}

type idMatch struct {
	id   string
	name string
}

// Extractor turns log lines into structured events. It never fails on a
// missing optional field: each field has an ordered cascade ending in a
// documented fallback.
type Extractor struct {
	settings Settings
	pick     func(n int) int

	creationID  []tier[idMatch]
	price       []tier[uint64]
	maxTickets  []tier[int]
	endTime     []tier[int64]
	description []tier[string]

	winnerID   []tier[idMatch]
	winnerAddr []tier[string]
	prize      []tier[uint64]
	winnerName []tier[string]
}

// Option настраивает Extractor.
type Option func(*Extractor)

// WithPicker replaces the random account picker of the winner cascade.
func WithPicker(pick func(n int) int) Option {
	return func(e *Extractor) { e.pick = pick }
}

// NewExtractor builds an extractor with the given fallbacks.
func NewExtractor(settings Settings, opts ...Option) *Extractor {
	e := &Extractor{settings: settings, pick: rand.IntN}
	for _, opt := range opts {
		opt(e)
	}
	e.buildCreationTiers()
	e.buildWinnerTiers()
	return e
}

// ExtractCreation parses a creation transaction. It returns false when no
// raffle id can be found.
func (e *Extractor) ExtractCreation(tx *blockchain.Transaction, now time.Time) (CreationEvent, bool) {
	in := newInput(tx, nil, now)

	match, idSrc, ok := cascade(in, e.creationID)
	if !ok {
		return CreationEvent{}, false
	}
	in.raffleID = match.id

	name, nameSrc := match.name, idSrc
	if name == "" {
		name, nameSrc, _ = cascade(in, []tier[string]{
			{name: "quoted-name", extract: matchLogs(quotedNamePattern)},
			always("default", func(*input) string { return DefaultCreationName }),
		})
	}

	price, priceSrc, _ := cascade(in, e.price)
	maxTickets, maxSrc, _ := cascade(in, e.maxTickets)
	end, endSrc, _ := cascade(in, e.endTime)
	desc, descSrc, _ := cascade(in, e.description)

	return CreationEvent{
		Raffle: raffle.Raffle{
			ID:          match.id,
			Name:        name,
			Description: desc,
			TicketPrice: price,
			EndTime:     end,
			MaxTickets:  maxTickets,
		},
		Provenance: map[string]string{
			"id":          idSrc,
			"name":        nameSrc,
			"price":       priceSrc,
			"max_tickets": maxSrc,
			"end_time":    endSrc,
			"description": descSrc,
		},
	}, true
}

// ExtractWinner parses a winner-draw transaction, consulting reg when the
// logs do not name the raffle. It returns false only when no id can be
// produced, which requires the synthesized tier to be disabled.
func (e *Extractor) ExtractWinner(tx *blockchain.Transaction, reg Registry, now time.Time) (WinnerEvent, bool) {
	in := newInput(tx, reg, now)

	match, idSrc, ok := cascade(in, e.winnerID)
	if !ok {
		return WinnerEvent{}, false
	}
	in.raffleID = match.id

	winner, winnerSrc, _ := cascade(in, e.winnerAddr)
	prize, prizeSrc, _ := cascade(in, e.prize)
	name, nameSrc, _ := cascade(in, e.winnerName)

	ticket := 0
	if m := firstSubmatch(in.logs, winningTicketPattern); m != nil {
		ticket, _ = strconv.Atoi(m[1])
	}

	return WinnerEvent{
		Signature:    tx.Signature,
		RaffleID:     match.id,
		RaffleName:   name,
		Winner:       winner,
		Prize:        prize,
		TicketNumber: ticket,
		Unattributed: idSrc == tierSynthesized,
		Provenance: map[string]string{
			"id":     idSrc,
			"winner": winnerSrc,
			"prize":  prizeSrc,
			"name":   nameSrc,
		},
	}, true
}

func firstSubmatch(lines []string, patterns ...*regexp.Regexp) []string {
	for _, re := range patterns {
		for _, l := range lines {
			if m := re.FindStringSubmatch(l); m != nil {
				return m
			}
		}
	}
	return nil
}

// matchLogs builds a tier extractor returning the first capture group of the
// first pattern that matches any log line.
func matchLogs(patterns ...*regexp.Regexp) func(*input) (string, bool) {
	return func(in *input) (string, bool) {
		if m := firstSubmatch(in.logs, patterns...); m != nil {
			return strings.TrimSpace(m[1]), true
		}
		return "", false
	}
}

func rejectedID(id string) bool {
	switch strings.ToLower(id) {
	case "", "sold", "ended":
		return true
	}
	return len(id) < 2
}

func solToLamports(v float64) uint64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return uint64(math.Round(v * raffle.LamportsPerSOL))
}

func validAddress(s string) bool {
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}
