// Package assembler builds the business-context prompt fragment for a
// chat turn.
package assembler

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/openhouse-crm/assistant/internal/domain"
	"github.com/openhouse-crm/assistant/internal/store"
)

const (
	deadlineLimit    = 5
	transactionLimit = 5
	clientLimit      = 5

	// A message longer than this is never treated as a greeting even if
	// it contains a greeting phrase.
	greetingMaxLen = 20
)

var greetingPhrases = []string{
	"hi",
	"hello",
	"hey",
	"good morning",
	"good afternoon",
	"good evening",
	"howdy",
	"yo",
	"thanks",
	"thank you",
}

// IsGreeting classifies a message as a plain greeting. The check is a
// pure function of the message text: the trimmed lowercase form must be
// shorter than a small fixed threshold and contain one of a fixed set of
// greeting phrases. Greetings skip context assembly entirely.
func IsGreeting(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" || len(m) >= greetingMaxLen {
		return false
	}
	for _, phrase := range greetingPhrases {
		if strings.Contains(m, phrase) {
			return true
		}
	}
	return false
}

// Assembler pulls bounded recency slices of business data and renders
// them into a compact prompt fragment.
type Assembler struct {
	store store.Store
}

// New creates an Assembler backed by the given store.
func New(s store.Store) *Assembler {
	return &Assembler{store: s}
}

// Build fetches the user's pending deadlines (soonest first), active
// transactions, and recently created clients.
func (a *Assembler) Build(ctx context.Context, userID string) (*domain.BusinessContext, error) {
	deadlines, err := a.store.ListPendingDeadlines(ctx, userID, deadlineLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending deadlines")
	}
	transactions, err := a.store.ListActiveTransactions(ctx, userID, transactionLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active transactions")
	}
	clients, err := a.store.ListRecentClients(ctx, userID, clientLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent clients")
	}

	log.Debug().Str("user_id", userID).
		Int("deadlines", len(deadlines)).
		Int("transactions", len(transactions)).
		Int("clients", len(clients)).
		Msg("business context built")

	return &domain.BusinessContext{
		PendingDeadlines:   deadlines,
		ActiveTransactions: transactions,
		RecentClients:      clients,
	}, nil
}

// Render formats the context as short line items. Empty collections get
// an explicit "none" placeholder so the prompt structure stays stable.
func Render(bc *domain.BusinessContext) string {
	var b strings.Builder

	b.WriteString("Upcoming deadlines:\n")
	if len(bc.PendingDeadlines) == 0 {
		b.WriteString("- none\n")
	}
	for _, d := range bc.PendingDeadlines {
		fmt.Fprintf(&b, "- %s due %s\n", d.Title, d.DueDate.Format("2006-01-02"))
	}

	b.WriteString("Active transactions:\n")
	if len(bc.ActiveTransactions) == 0 {
		b.WriteString("- none\n")
	}
	for _, t := range bc.ActiveTransactions {
		fmt.Fprintf(&b, "- %s (%s), closing %s\n", t.Address, t.Status, t.ClosingDate.Format("2006-01-02"))
	}

	b.WriteString("Recent clients:\n")
	if len(bc.RecentClients) == 0 {
		b.WriteString("- none\n")
	}
	for _, c := range bc.RecentClients {
		fmt.Fprintf(&b, "- %s (%s lead)\n", c.Name, c.Status)
	}

	return b.String()
}
