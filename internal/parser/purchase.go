// internal/parser/purchase.go
package parser

import (
	"regexp"
	"strings"
)

var (
	purchaseIDPattern     = regexp.MustCompile(`[Rr]affle\s*ID:?\s*([A-Za-z0-9][A-Za-z0-9-]*)`)
	ticketPurchasePattern = regexp.MustCompile(`Ticket #\d+ purchased by`)
)

// Purchase is an incidental ticket purchase observed in a transaction.
type Purchase struct {
	RaffleID string // empty when the logs carry no id
	Tickets  int
}

// DetectPurchase looks for ticket-purchase evidence in logs.
func DetectPurchase(logs []string) (Purchase, bool) {
	var (
		p      Purchase
		marker bool
	)
	for _, l := range logs {
		lower := strings.ToLower(l)
		if strings.Contains(lower, "instruction: buyticket") || strings.Contains(lower, "buy_ticket") {
			marker = true
		}
		if ticketPurchasePattern.MatchString(l) {
			marker = true
			p.Tickets++
		}
		if p.RaffleID == "" {
			if m := purchaseIDPattern.FindStringSubmatch(l); m != nil && !rejectedID(m[1]) {
				p.RaffleID = m[1]
			}
		}
	}
	if !marker {
		return Purchase{}, false
	}
	if p.Tickets == 0 {
		p.Tickets = 1
	}
	return p, true
}
