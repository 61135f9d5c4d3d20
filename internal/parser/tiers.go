// internal/parser/tiers.go
package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain"
)

const tierSynthesized = "synthesized"

const idChars = `[A-Za-z0-9][A-Za-z0-9-]*`
const addrChars = `[1-9A-HJ-NP-Za-km-z]{32,44}`

var (
	initializedPattern = regexp.MustCompile(`Raffle '(.+?)' \(ID:\s*(` + idChars + `)\)`)
	bareIDPattern      = regexp.MustCompile(`\bID(?::\s*|\s+)(` + idChars + `)`)
	raffleIDPattern    = regexp.MustCompile(`[Rr]affle\s+ID(?::\s*|\s+)(` + idChars + `)`)
	idShapePattern     = regexp.MustCompile(`\b([A-Za-z0-9]{2,8}-[A-Za-z0-9]{3,5}-\d{3})\b`)
	quotedNamePattern  = regexp.MustCompile(`Raffle '(.+?)'`)

	lamportPricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ticket_price[\s:=]*(\d*\.?\d+)\s*(sol|lamports)?`),
		regexp.MustCompile(`(?i)price[\s:=]*(\d*\.?\d+)\s*(lamports)`),
		regexp.MustCompile(`(?i)lamports[\s:=]+(\d*\.?\d+)()`),
		regexp.MustCompile(`(?i)\b(\d+)\s*(lamports)\b`),
	}
	solPricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)price[\s:=]+(\d*\.?\d+)\s*SOL\b`),
		regexp.MustCompile(`(?i)(\d*\.?\d+)\s*SOL\b`),
		regexp.MustCompile(`(?i)price[\s:=]+(\d*\.\d+)`),
	}

	maxTicketsPattern   = regexp.MustCompile(`(?i)max(?:imum)?[_\s]*tickets?[\s:=]+(\d+)`)
	ticketsCountPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:max(?:imum)?\s+)?tickets?\b`)
	endEpochPattern     = regexp.MustCompile(`(?i)\bend(?:s|_time|\s*time)?(?:\s*at)?[\s:=]+(\d{9,11})\b`)
	durationPattern     = regexp.MustCompile(`(?i)duration[\s:=]+(\d+)\s*(days?|d|hours?|hrs?|h|minutes?|mins?|m)\b`)
	descriptionPattern  = regexp.MustCompile(`(?i)description[\s:=]+(.+)`)

	winnerNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`Winner drawn for raffle '(.+?)'`),
		regexp.MustCompile(`Raffle '(.+?)' has ended`),
		quotedNamePattern,
	}
	winningTicketPattern = regexp.MustCompile(`(?i)winner drawn[^#]*#(\d+)`)

	winnerAddrPattern = regexp.MustCompile(`(?i)winner(?:\s+(?:address|pubkey|key))?:?\s+(` + addrChars + `)\b`)
	claimAddrPattern  = regexp.MustCompile(`(?i)(?:claiming|claimed)(?:\s+(?:by|to))?:?\s+(` + addrChars + `)\b`)
	bareAddrPattern   = regexp.MustCompile(`\b(` + addrChars + `)\b`)

	prizeLamportPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)prize of (\d+) lamports`),
		regexp.MustCompile(`(?i)prize[\s:=]+(\d+)\s*lamports`),
	}
	prizeSOLPattern = regexp.MustCompile(`(?i)(?:prize|amount|won|winnings)[^0-9\n]{0,24}?(\d*\.?\d+)\s*SOL\b`)
)

func (e *Extractor) buildCreationTiers() {
	s := e.settings

	e.creationID = []tier[idMatch]{
		{name: "initialized-line", extract: func(in *input) (idMatch, bool) {
			if m := firstSubmatch(in.logs, initializedPattern); m != nil {
				return idMatch{id: m[2], name: m[1]}, true
			}
			return idMatch{}, false
		}},
		{name: "bare-id", extract: func(in *input) (idMatch, bool) {
			for _, l := range in.logs {
				for _, m := range bareIDPattern.FindAllStringSubmatch(l, -1) {
					if !rejectedID(m[1]) {
						return idMatch{id: m[1]}, true
					}
				}
			}
			return idMatch{}, false
		}},
	}

	e.price = []tier[uint64]{
		{name: "lamports", extract: func(in *input) (uint64, bool) {
			for _, re := range lamportPricePatterns {
				for _, l := range in.logs {
					m := re.FindStringSubmatch(l)
					if m == nil || strings.Contains(m[1], ".") || strings.EqualFold(m[2], "sol") {
						continue
					}
					v, err := strconv.ParseUint(m[1], 10, 64)
					if err == nil && v >= s.MinTicketPrice {
						return v, true
					}
				}
			}
			return 0, false
		}},
		{name: "sol", extract: func(in *input) (uint64, bool) {
			for _, re := range solPricePatterns {
				for _, l := range in.logs {
					m := re.FindStringSubmatch(l)
					if m == nil {
						continue
					}
					f, err := strconv.ParseFloat(m[1], 64)
					if v := solToLamports(f); err == nil && v >= s.MinTicketPrice {
						return v, true
					}
				}
			}
			return 0, false
		}},
		always("default", func(*input) uint64 { return s.TicketPrice }),
	}

	e.maxTickets = []tier[int]{
		{name: "max-tickets", extract: func(in *input) (int, bool) {
			if m := firstSubmatch(in.logs, maxTicketsPattern); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
					return n, true
				}
			}
			return 0, false
		}},
		{name: "tickets-count", extract: func(in *input) (int, bool) {
			for _, l := range in.logs {
				lower := strings.ToLower(l)
				if !strings.Contains(lower, "max") && !strings.Contains(lower, "total") {
					continue
				}
				if m := ticketsCountPattern.FindStringSubmatch(l); m != nil {
					if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
						return n, true
					}
				}
			}
			return 0, false
		}},
		always("default", func(*input) int { return s.MaxTickets }),
	}

	e.endTime = []tier[int64]{
		{name: "end-epoch", extract: func(in *input) (int64, bool) {
			if m := firstSubmatch(in.logs, endEpochPattern); m != nil {
				if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
					return v, true
				}
			}
			return 0, false
		}},
		{name: "duration", extract: func(in *input) (int64, bool) {
			m := firstSubmatch(in.logs, durationPattern)
			if m == nil {
				return 0, false
			}
			d, err := parseDuration(m[1], m[2])
			if err != nil || d <= 0 {
				return 0, false
			}
			return in.base.Add(d).Unix(), true
		}},
		always("default", func(in *input) int64 { return in.base.Add(s.Duration).Unix() }),
	}

	e.description = []tier[string]{
		{name: "description-line", extract: matchLogs(descriptionPattern)},
		always("default", func(*input) string { return DefaultDescription }),
	}
}

func (e *Extractor) buildWinnerTiers() {
	s := e.settings

	e.winnerID = []tier[idMatch]{
		{name: "explicit-id", extract: func(in *input) (idMatch, bool) {
			for _, re := range []*regexp.Regexp{raffleIDPattern, bareIDPattern} {
				for _, l := range in.logs {
					for _, m := range re.FindAllStringSubmatch(l, -1) {
						if !rejectedID(m[1]) {
							return idMatch{id: m[1]}, true
						}
					}
				}
			}
			return idMatch{}, false
		}},
		{name: "id-shape", extract: func(in *input) (idMatch, bool) {
			if m := firstSubmatch(in.logs, idShapePattern); m != nil {
				return idMatch{id: m[1]}, true
			}
			return idMatch{}, false
		}},
		{name: "name-match", extract: func(in *input) (idMatch, bool) {
			name, ok := matchLogs(winnerNamePatterns...)(in)
			if !ok || in.reg == nil {
				return idMatch{}, false
			}
			if id, ok := in.reg.FindByName(name); ok {
				return idMatch{id: id, name: name}, true
			}
			return idMatch{}, false
		}},
		{name: "recently-ended", extract: func(in *input) (idMatch, bool) {
			if in.reg == nil {
				return idMatch{}, false
			}
			if r, ok := in.reg.MostRecentlyEnded(); ok {
				return idMatch{id: r.ID, name: r.Name}, true
			}
			return idMatch{}, false
		}},
		{name: "soonest-active", extract: func(in *input) (idMatch, bool) {
			if in.reg == nil {
				return idMatch{}, false
			}
			if r, ok := in.reg.SoonestEnding(); ok {
				return idMatch{id: r.ID, name: r.Name}, true
			}
			return idMatch{}, false
		}},
	}
	if s.SynthesizeIDs {
		e.winnerID = append(e.winnerID, always(tierSynthesized, func(in *input) idMatch {
			return idMatch{id: UnattributedPrefix + shortSignature(in.tx.Signature)}
		}))
	}

	e.winnerAddr = []tier[string]{
		{name: "winner-line", extract: matchPayloadAddr(winnerAddrPattern, "")},
		{name: "claim-line", extract: matchPayloadAddr(claimAddrPattern, "")},
		{name: "winner-mention", extract: matchPayloadAddr(bareAddrPattern, "winner")},
		{name: "balance-increase", extract: func(in *input) (string, bool) {
			best, ok := largestIncrease(in)
			return best.Account, ok
		}},
		{name: "random-account", extract: func(in *input) (string, bool) {
			keys := in.tx.AccountKeys
			if len(keys) == 0 {
				return "", false
			}
			return keys[e.pick(len(keys))], true
		}},
		always("placeholder", func(*input) string { return UnknownWinner }),
	}

	e.prize = []tier[uint64]{
		{name: "prize-lamports", extract: func(in *input) (uint64, bool) {
			if m := firstSubmatch(in.logs, prizeLamportPatterns...); m != nil {
				if v, err := strconv.ParseUint(m[1], 10, 64); err == nil && v > 0 {
					return v, true
				}
			}
			return 0, false
		}},
		{name: "prize-sol", extract: func(in *input) (uint64, bool) {
			if m := firstSubmatch(in.logs, prizeSOLPattern); m != nil {
				f, err := strconv.ParseFloat(m[1], 64)
				if v := solToLamports(f); err == nil && v > 0 {
					return v, true
				}
			}
			return 0, false
		}},
		{name: "balance-delta", extract: func(in *input) (uint64, bool) {
			best, ok := largestIncrease(in)
			if !ok || uint64(best.Delta) < s.MinPrizeDelta {
				return 0, false
			}
			return uint64(best.Delta), true
		}},
		{name: "estimate", extract: func(in *input) (uint64, bool) {
			pot := trackedPot(in)
			if pot == 0 {
				return 0, false
			}
			return uint64(math.Round(float64(pot) * (1 - s.PlatformFee))), true
		}},
		always("default", func(*input) uint64 { return s.Prize }),
	}

	e.winnerName = []tier[string]{
		{name: "log-name", extract: matchLogs(winnerNamePatterns...)},
		{name: "tracked", extract: func(in *input) (string, bool) {
			if in.reg == nil {
				return "", false
			}
			if r, ok := in.reg.Ended(in.raffleID); ok && r.Name != "" {
				return r.Name, true
			}
			if r, ok := in.reg.Active(in.raffleID); ok && r.Name != "" {
				return r.Name, true
			}
			return "", false
		}},
		always("default", func(*input) string { return DefaultWinnerName }),
	}
}

// matchPayloadAddr searches program-log payloads only, so runtime lines such
// as "Program <id> invoke [1]" never yield the program address.
func matchPayloadAddr(re *regexp.Regexp, mustContain string) func(*input) (string, bool) {
	return func(in *input) (string, bool) {
		for _, p := range in.payloads {
			if mustContain != "" && !strings.Contains(strings.ToLower(p), mustContain) {
				continue
			}
			for _, m := range re.FindAllStringSubmatch(p, -1) {
				if validAddress(m[1]) {
					return m[1], true
				}
			}
		}
		return "", false
	}
}

// largestIncrease returns the account whose balance rose the most.
func largestIncrease(in *input) (best blockchain.BalanceDelta, ok bool) {
	for _, d := range in.tx.BalanceDeltas() {
		if d.Delta > best.Delta {
			best.Account, best.Delta = d.Account, d.Delta
			ok = true
		}
	}
	return best, ok
}

// trackedPot is the gross revenue of the tracked raffle, or 0.
func trackedPot(in *input) uint64 {
	if in.reg == nil {
		return 0
	}
	if r, ok := in.reg.Ended(in.raffleID); ok {
		return r.Pot()
	}
	if r, ok := in.reg.Active(in.raffleID); ok {
		return r.Pot()
	}
	return 0
}

func parseDuration(amount, unit string) (time.Duration, error) {
	n, err := strconv.Atoi(amount)
	if err != nil {
		return 0, err
	}
	switch strings.ToLower(unit) {
	case "d", "day", "days":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h", "hr", "hrs", "hour", "hours":
		return time.Duration(n) * time.Hour, nil
	case "m", "min", "mins", "minute", "minutes":
		return time.Duration(n) * time.Minute, nil
	}
	return 0, fmt.Errorf("unknown duration unit %q", unit)
}

func shortSignature(sig string) string {
	if len(sig) > 8 {
		return sig[:8]
	}
	return sig
}
