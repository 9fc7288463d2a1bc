package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/openhouse-crm/assistant/internal/assembler"
	"github.com/openhouse-crm/assistant/internal/domain"
	"github.com/openhouse-crm/assistant/internal/notify"
	"github.com/openhouse-crm/assistant/internal/store"
)

const dateLayout = "2006-01-02"

// CRMHandlers implements the assistant's business operations. Each
// handler re-validates its inputs and reports partial failures instead
// of swallowing them.
type CRMHandlers struct {
	store    store.Store
	notifier *notify.Client
	now      func() time.Time
}

// NewCRMHandlers creates the handler set over the store and notifier.
func NewCRMHandlers(s store.Store, notifier *notify.Client) *CRMHandlers {
	return &CRMHandlers{store: s, notifier: notifier, now: time.Now}
}

// RegisterAll registers every CRM tool into the registry.
func (h *CRMHandlers) RegisterAll(r *Registry) {
	r.MustRegister(domain.ToolDefinition{
		Name:        "add_client",
		Description: "Add a new client to the CRM. Use when the user wants to track a new lead or contact.",
		Parameters: &domain.JSONSchema{
			Type: "object",
			Properties: map[string]any{
				"name":   map[string]any{"type": "string", "description": "Full name of the client"},
				"status": map[string]any{"type": "string", "enum": []string{"hot", "warm", "cold", "active", "closed"}, "description": "Lead status, defaults to warm"},
				"email":  map[string]any{"type": "string"},
				"phone":  map[string]any{"type": "string"},
			},
			Required: []string{"name"},
		},
	}, h.AddClient)

	r.MustRegister(domain.ToolDefinition{
		Name:        "create_transaction",
		Description: "Create a transaction for a client and derive its milestone timeline from the contract and closing dates. Creates the client if they are not in the CRM yet.",
		Parameters: &domain.JSONSchema{
			Type: "object",
			Properties: map[string]any{
				"client_name":   map[string]any{"type": "string"},
				"address":       map[string]any{"type": "string", "description": "Property address"},
				"price":         map[string]any{"type": "number"},
				"contract_date": map[string]any{"type": "string", "description": "Contract date, YYYY-MM-DD"},
				"closing_date":  map[string]any{"type": "string", "description": "Closing date, YYYY-MM-DD"},
			},
			Required: []string{"client_name", "address", "contract_date", "closing_date"},
		},
	}, h.CreateTransaction)

	r.MustRegister(domain.ToolDefinition{
		Name:        "update_lead_status",
		Description: "Update the lead status of an existing client.",
		Parameters: &domain.JSONSchema{
			Type: "object",
			Properties: map[string]any{
				"client_name": map[string]any{"type": "string"},
				"status":      map[string]any{"type": "string", "enum": []string{"hot", "warm", "cold", "active", "closed"}},
			},
			Required: []string{"client_name", "status"},
		},
	}, h.UpdateLeadStatus)

	r.MustRegister(domain.ToolDefinition{
		Name:        "complete_deadline",
		Description: "Mark a pending transaction deadline as completed, matched by title.",
		Parameters: &domain.JSONSchema{
			Type: "object",
			Properties: map[string]any{
				"title": map[string]any{"type": "string", "description": "Deadline title, e.g. Home Inspection"},
			},
			Required: []string{"title"},
		},
	}, h.CompleteDeadline)

	r.MustRegister(domain.ToolDefinition{
		Name:        "send_briefing",
		Description: "Send the user a briefing of their pending deadlines and active pipeline via email or SMS.",
		Parameters: &domain.JSONSchema{
			Type: "object",
			Properties: map[string]any{
				"channel": map[string]any{"type": "string", "enum": []string{"email", "sms"}},
			},
			Required: []string{"channel"},
		},
	}, h.SendBriefing)

	r.MustRegister(domain.ToolDefinition{
		Name:        "list_deadlines",
		Description: "List the user's upcoming pending deadlines, soonest first.",
		Parameters:  &domain.JSONSchema{Type: "object"},
	}, h.ListDeadlines)
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func numberArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func leadStatusArg(args map[string]any, key string, fallback domain.LeadStatus) (domain.LeadStatus, error) {
	raw := stringArg(args, key)
	if raw == "" {
		return fallback, nil
	}
	status := domain.LeadStatus(strings.ToLower(raw))
	if !domain.ValidLeadStatus(status) {
		return "", errors.Errorf("unknown lead status %q", raw)
	}
	return status, nil
}

// AddClient creates a client record, or reports the existing one when
// the name is already tracked.
func (h *CRMHandlers) AddClient(ctx context.Context, args map[string]any) (any, error) {
	userID := UserFrom(ctx)
	name := stringArg(args, "name")
	if name == "" {
		return nil, errors.New("client name is required")
	}
	status, err := leadStatusArg(args, "status", domain.LeadStatusWarm)
	if err != nil {
		return nil, err
	}

	client, created, err := h.store.FindOrCreateClient(ctx, userID, name, status)
	if err != nil {
		return nil, errors.Wrap(err, "failed to add client")
	}

	email := stringArg(args, "email")
	phone := stringArg(args, "phone")
	if created && (email != "" || phone != "") {
		if err := h.store.UpdateClientContact(ctx, client.ClientID, email, phone); err != nil {
			return nil, errors.Wrapf(err, "client %s created but contact details were not saved", client.Name)
		}
		client.Email = email
		client.Phone = phone
	}

	return map[string]any{
		"client_id": client.ClientID,
		"name":      client.Name,
		"status":    client.Status,
		"created":   created,
	}, nil
}

// CreateTransaction finds or creates the client, records the deal, and
// derives its milestone timeline. A failure after the client was created
// is reported with that partial state named, never swallowed.
func (h *CRMHandlers) CreateTransaction(ctx context.Context, args map[string]any) (any, error) {
	userID := UserFrom(ctx)
	clientName := stringArg(args, "client_name")
	address := stringArg(args, "address")
	if clientName == "" || address == "" {
		return nil, errors.New("client_name and address are required")
	}

	contractDate, err := time.Parse(dateLayout, stringArg(args, "contract_date"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid contract_date, expected YYYY-MM-DD")
	}
	closingDate, err := time.Parse(dateLayout, stringArg(args, "closing_date"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid closing_date, expected YYYY-MM-DD")
	}
	if closingDate.Before(contractDate) {
		return nil, errors.New("closing_date must not be before contract_date")
	}

	client, clientCreated, err := h.store.FindOrCreateClient(ctx, userID, clientName, domain.LeadStatusActive)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve client")
	}

	tx := &domain.Transaction{
		TransactionID: "tx_" + uuid.New().String()[:8],
		UserID:        userID,
		ClientID:      client.ClientID,
		Address:       address,
		Price:         numberArg(args, "price"),
		Status:        domain.TransactionStatusUnderContract,
		ContractDate:  contractDate,
		ClosingDate:   closingDate,
		CreatedAt:     h.now().UTC(),
	}
	if err := h.store.CreateTransaction(ctx, tx); err != nil {
		return nil, errors.Wrapf(err, "client %s is ready but the transaction could not be created", client.Name)
	}

	milestones := DeriveTimeline(contractDate, closingDate)
	created := 0
	for _, m := range milestones {
		deadline := &domain.Deadline{
			DeadlineID:    "dl_" + uuid.New().String()[:8],
			TransactionID: tx.TransactionID,
			UserID:        userID,
			Title:         m.Title,
			DueDate:       m.DueDate,
		}
		if err := h.store.CreateDeadline(ctx, deadline); err != nil {
			return nil, errors.Wrapf(err, "transaction %s created but its timeline is incomplete (%d of %d deadlines saved)",
				tx.TransactionID, created, len(milestones))
		}
		created++
	}

	timeline := make([]map[string]any, 0, len(milestones))
	for _, m := range milestones {
		timeline = append(timeline, map[string]any{
			"title":    m.Title,
			"due_date": m.DueDate.Format(dateLayout),
		})
	}

	return map[string]any{
		"transaction_id": tx.TransactionID,
		"client_id":      client.ClientID,
		"client_created": clientCreated,
		"address":        address,
		"timeline":       timeline,
	}, nil
}

// UpdateLeadStatus sets a client's lead status, matching the client by
// fuzzy name lookup.
func (h *CRMHandlers) UpdateLeadStatus(ctx context.Context, args map[string]any) (any, error) {
	userID := UserFrom(ctx)
	clientName := stringArg(args, "client_name")
	if clientName == "" {
		return nil, errors.New("client_name is required")
	}
	status, err := leadStatusArg(args, "status", "")
	if err != nil {
		return nil, err
	}
	if status == "" {
		return nil, errors.New("status is required")
	}

	client, err := h.store.FindClientByName(ctx, userID, clientName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up client")
	}
	if client == nil {
		return nil, errors.Errorf("no client matching %q", clientName)
	}

	if err := h.store.UpdateClientStatus(ctx, client.ClientID, status); err != nil {
		return nil, errors.Wrap(err, "failed to update client status")
	}

	return map[string]any{
		"client_id": client.ClientID,
		"name":      client.Name,
		"status":    status,
	}, nil
}

// CompleteDeadline marks the next pending deadline matching the title
// as done.
func (h *CRMHandlers) CompleteDeadline(ctx context.Context, args map[string]any) (any, error) {
	userID := UserFrom(ctx)
	title := stringArg(args, "title")
	if title == "" {
		return nil, errors.New("title is required")
	}

	deadline, err := h.store.FindPendingDeadlineByTitle(ctx, userID, title)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up deadline")
	}
	if deadline == nil {
		return nil, errors.Errorf("no pending deadline matching %q", title)
	}

	if err := h.store.CompleteDeadline(ctx, deadline.DeadlineID); err != nil {
		return nil, errors.Wrap(err, "failed to complete deadline")
	}

	return map[string]any{
		"deadline_id": deadline.DeadlineID,
		"title":       deadline.Title,
		"completed":   true,
	}, nil
}

// SendBriefing renders the user's deadlines and pipeline into a short
// briefing and dispatches it through the notification gateway.
func (h *CRMHandlers) SendBriefing(ctx context.Context, args map[string]any) (any, error) {
	userID := UserFrom(ctx)
	channel := strings.ToLower(stringArg(args, "channel"))
	if channel != "email" && channel != "sms" {
		return nil, errors.Errorf("unsupported channel %q", channel)
	}

	ctxAssembler := assembler.New(h.store)
	bc, err := ctxAssembler.Build(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build briefing")
	}
	body := fmt.Sprintf("Daily briefing\n\n%s", assembler.Render(bc))

	if err := h.notifier.Send(ctx, notify.Notification{
		UserID:  userID,
		Channel: channel,
		Subject: "Your pipeline briefing",
		Body:    body,
	}); err != nil {
		return nil, errors.Wrap(err, "briefing was built but could not be delivered")
	}

	return map[string]any{
		"channel":   channel,
		"deadlines": len(bc.PendingDeadlines),
		"sent":      true,
	}, nil
}

// ListDeadlines returns the user's upcoming pending deadlines.
func (h *CRMHandlers) ListDeadlines(ctx context.Context, args map[string]any) (any, error) {
	userID := UserFrom(ctx)
	deadlines, err := h.store.ListPendingDeadlines(ctx, userID, 10)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list deadlines")
	}

	items := make([]map[string]any, 0, len(deadlines))
	for _, d := range deadlines {
		items = append(items, map[string]any{
			"deadline_id": d.DeadlineID,
			"title":       d.Title,
			"due_date":    d.DueDate.Format(dateLayout),
		})
	}
	return map[string]any{"deadlines": items}, nil
}
