// internal/parser/classifier.go
package parser

import "strings"

// Kind is the event class of one program transaction.
type Kind int

const (
	Irrelevant Kind = iota
	Creation
	WinnerDrawn
)

func (k Kind) String() string {
	switch k {
	case Creation:
		return "creation"
	case WinnerDrawn:
		return "winner_drawn"
	default:
		return "irrelevant"
	}
}

var (
	creationMarkers = []string{
		"instruction: initializeraffle",
		"initialize_raffle",
	}
	winnerMarkers = []string{
		"instruction: drawwinner",
		"draw_winner",
	}
	winnerPhrases = []string{
		"winner drawn",
		"drew winner",
		"raffle winner",
	}
	creationPhrases = []string{
		"new raffle created",
	}
)

// Classify decides the event class from log lines alone. Instruction markers
// are authoritative; otherwise a single keyword is never enough and a second
// corroborating keyword must appear.
func Classify(logs []string) Kind {
	lower := make([]string, len(logs))
	for i, l := range logs {
		lower[i] = strings.ToLower(l)
	}

	switch {
	case containsAny(lower, winnerMarkers):
		return WinnerDrawn
	case containsAny(lower, creationMarkers):
		return Creation
	// creation lines quote free text, which may itself mention a winner
	case containsAny(lower, creationPhrases) || sameLine(lower, "raffle", "initialized", "created"):
		return Creation
	case containsAny(lower, winnerPhrases):
		return WinnerDrawn
	case cooccur(lower, "winner", "raffle"):
		return WinnerDrawn
	default:
		return Irrelevant
	}
}

func containsAny(lines []string, needles []string) bool {
	for _, l := range lines {
		for _, n := range needles {
			if strings.Contains(l, n) {
				return true
			}
		}
	}
	return false
}

// cooccur reports whether both words appear somewhere in the transaction.
func cooccur(lines []string, a, b string) bool {
	var hasA, hasB bool
	for _, l := range lines {
		hasA = hasA || strings.Contains(l, a)
		hasB = hasB || strings.Contains(l, b)
	}
	return hasA && hasB
}

// sameLine reports whether one line holds word together with any of others.
func sameLine(lines []string, word string, others ...string) bool {
	for _, l := range lines {
		if !strings.Contains(l, word) {
			continue
		}
		for _, o := range others {
			if strings.Contains(l, o) {
				return true
			}
		}
	}
	return false
}
