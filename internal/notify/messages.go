// internal/notify/messages.go
package notify

import (
	"fmt"
	"strings"

	"github.com/rovshanmuradov/raffle-monitor/internal/raffle"
)

// WinnerAnnouncement carries the fields of a winner message.
type WinnerAnnouncement struct {
	RaffleID     string
	RaffleName   string
	Description  string
	Winner       string
	Prize        uint64 // lamports
	TicketNumber int
	Signature    string
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// EscapeMarkdown escapes Telegram legacy Markdown control characters.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// FormatSOL renders lamports as SOL: three decimals below 0.01, two below 1,
// one otherwise.
func FormatSOL(lamports uint64) string {
	sol := float64(lamports) / raffle.LamportsPerSOL
	switch {
	case sol < 0.01:
		return fmt.Sprintf("%.3f", sol)
	case sol < 1:
		return fmt.Sprintf("%.2f", sol)
	default:
		return fmt.Sprintf("%.1f", sol)
	}
}

// CreationMessage is the full-text new raffle alert.
func CreationMessage(r raffle.Raffle) string {
	var b strings.Builder
	b.WriteString("🔥 *NEW 7AFFLE ALERT!* 🔥\n\n")
	fmt.Fprintf(&b, "*%s*\n\n", EscapeMarkdown(r.Name))
	fmt.Fprintf(&b, "*Raffle ID:* `%s`\n", r.ID)
	fmt.Fprintf(&b, "*Ticket price:* %s SOL\n", FormatSOL(r.TicketPrice))
	if r.MaxTickets > 0 {
		fmt.Fprintf(&b, "*Tickets:* %d\n", r.MaxTickets)
	}
	b.WriteString("\n💰 Win SOL in this exclusive raffle! 💰\n\n")
	b.WriteString("⏰ *LIMITED TIME OPPORTUNITY* ⏰\n")
	b.WriteString("🎯 Join now at 7affle.fun\n")
	b.WriteString("🎮 Connect your wallet\n")
	b.WriteString("🎟️ Get your tickets\n\n")
	b.WriteString("🚀 *Don't miss your chance to win!* 🚀\n")
	return b.String()
}

// CreationCaption is the shorter caption attached to the alert video.
func CreationCaption(r raffle.Raffle) string {
	var b strings.Builder
	b.WriteString("🔥 *NEW 7AFFLE ALERT!* 🔥\n\n")
	fmt.Fprintf(&b, "*%s*\n\n", EscapeMarkdown(r.Name))
	fmt.Fprintf(&b, "*Raffle ID:* `%s`\n\n", r.ID)
	b.WriteString("💰 Win SOL in this exclusive raffle! 💰\n")
	b.WriteString("🎯 Join now at 7affle.fun\n")
	b.WriteString("🎟️ Get your tickets\n\n")
	b.WriteString("🚀 *Don't miss your chance to win!* 🚀\n")
	return b.String()
}

// WinnerMessage is the winner announcement.
func WinnerMessage(w WinnerAnnouncement) string {
	var b strings.Builder
	b.WriteString("🎁 *7AFFLE WINNER ANNOUNCEMENT!* 🎁\n\n")
	fmt.Fprintf(&b, "💸 *%s SOL CLAIMED!* 💸\n\n", FormatSOL(w.Prize))
	fmt.Fprintf(&b, "*%s* raffle has officially ended!\n\n", EscapeMarkdown(w.RaffleName))
	if w.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", EscapeMarkdown(w.Description))
	}
	fmt.Fprintf(&b, "*Raffle ID:* `%s`\n", w.RaffleID)
	if w.TicketNumber > 0 {
		fmt.Fprintf(&b, "*Winning ticket:* #%d\n", w.TicketNumber)
	}
	if w.Winner != "" {
		fmt.Fprintf(&b, "*Winner:* `%s`\n", ShortAddress(w.Winner))
	}
	b.WriteString("\n🎉 *CONGRATULATIONS TO OUR LUCKY WINNER!* 🎉\n\n")
	b.WriteString("🔔 *NEXT RAFFLE COMING SOON* 🔔\n")
	b.WriteString("📲 Stay tuned to this channel for more opportunities!\n")
	b.WriteString("💎 Don't miss your next chance to win BIG at 7affle.fun\n")
	return b.String()
}

// StartupMessage is sent once when monitoring begins.
func StartupMessage(network string) string {
	msg := "🤖 *7affle Monitoring Bot Started*\n\nThe bot is now actively monitoring for new raffles on the Solana blockchain!"
	if network != "" {
		msg += fmt.Sprintf("\nNetwork: `%s`", network)
	}
	return msg
}

// ShortAddress abbreviates a base58 address as abcd...wxyz.
func ShortAddress(addr string) string {
	if len(addr) > 12 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}
