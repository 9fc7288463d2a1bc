package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/openhouse-crm/assistant/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dsn and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			client_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			name_norm TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_clients_user_name ON clients(user_id, name_norm)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			transaction_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			address TEXT NOT NULL,
			price REAL,
			status TEXT NOT NULL,
			contract_date DATETIME NOT NULL,
			closing_date DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (client_id) REFERENCES clients(client_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS deadlines (
			deadline_id TEXT PRIMARY KEY,
			transaction_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			due_date DATETIME NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			completed_at DATETIME,
			FOREIGN KEY (transaction_id) REFERENCES transactions(transaction_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deadlines_user_due ON deadlines(user_id, completed, due_date)`,
		`CREATE TABLE IF NOT EXISTS history (
			message_id TEXT PRIMARY KEY,
			owner_key TEXT NOT NULL,
			session_id TEXT,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_owner ON history(owner_key, created_at)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return errors.Wrapf(err, "migration failed: %s", m)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// normalizeName lowercases, trims, and collapses interior whitespace so
// that "Jane  Doe " and "jane doe" resolve to the same client.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// --- Clients ---

func (s *SQLiteStore) CreateClient(ctx context.Context, client *domain.Client) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (client_id, user_id, name, name_norm, email, phone, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ClientID, client.UserID, client.Name, normalizeName(client.Name),
		client.Email, client.Phone, string(client.Status), client.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert client")
	}
	return nil
}

func (s *SQLiteStore) FindOrCreateClient(ctx context.Context, userID, name string, status domain.LeadStatus) (*domain.Client, bool, error) {
	norm := normalizeName(name)
	client := &domain.Client{
		ClientID:  "cl_" + newID(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}

	// INSERT OR IGNORE against the unique (user_id, name_norm) index is
	// the transactional guard: two concurrent requests for the same name
	// resolve to a single row.
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO clients (client_id, user_id, name, name_norm, email, phone, status, created_at)
		 VALUES (?, ?, ?, ?, '', '', ?, ?)`,
		client.ClientID, userID, client.Name, norm, string(status), client.CreatedAt)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to upsert client")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read upsert result")
	}
	if affected == 1 {
		return client, true, nil
	}

	existing, err := s.queryClient(ctx,
		`SELECT client_id, user_id, name, email, phone, status, created_at
		 FROM clients WHERE user_id = ? AND name_norm = ?`, userID, norm)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.Errorf("client %q vanished after upsert", name)
	}
	return existing, false, nil
}

func (s *SQLiteStore) FindClientByName(ctx context.Context, userID, name string) (*domain.Client, error) {
	norm := normalizeName(name)

	client, err := s.queryClient(ctx,
		`SELECT client_id, user_id, name, email, phone, status, created_at
		 FROM clients WHERE user_id = ? AND name_norm = ?`, userID, norm)
	if err != nil || client != nil {
		return client, err
	}

	// Fall back to a substring match on the normalized name.
	return s.queryClient(ctx,
		`SELECT client_id, user_id, name, email, phone, status, created_at
		 FROM clients WHERE user_id = ? AND name_norm LIKE '%' || ? || '%'
		 ORDER BY created_at DESC LIMIT 1`, userID, norm)
}

func (s *SQLiteStore) queryClient(ctx context.Context, query string, args ...any) (*domain.Client, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	var c domain.Client
	var email, phone sql.NullString
	err := row.Scan(&c.ClientID, &c.UserID, &c.Name, &email, &phone, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan client")
	}
	c.Email = email.String
	c.Phone = phone.String
	return &c, nil
}

func (s *SQLiteStore) UpdateClientStatus(ctx context.Context, clientID string, status domain.LeadStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET status = ? WHERE client_id = ?`, string(status), clientID)
	if err != nil {
		return errors.Wrap(err, "failed to update client status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read update result")
	}
	if affected == 0 {
		return errors.Errorf("client %s not found", clientID)
	}
	return nil
}

func (s *SQLiteStore) UpdateClientContact(ctx context.Context, clientID, email, phone string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET email = ?, phone = ? WHERE client_id = ?`, email, phone, clientID)
	if err != nil {
		return errors.Wrap(err, "failed to update client contact")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read update result")
	}
	if affected == 0 {
		return errors.Errorf("client %s not found", clientID)
	}
	return nil
}

func (s *SQLiteStore) ListRecentClients(ctx context.Context, userID string, limit int) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT client_id, user_id, name, email, phone, status, created_at
		 FROM clients WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query clients")
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		var email, phone sql.NullString
		if err := rows.Scan(&c.ClientID, &c.UserID, &c.Name, &email, &phone, &c.Status, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan client")
		}
		c.Email = email.String
		c.Phone = phone.String
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// --- Transactions ---

func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (transaction_id, user_id, client_id, address, price, status, contract_date, closing_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.TransactionID, tx.UserID, tx.ClientID, tx.Address, tx.Price,
		string(tx.Status), tx.ContractDate, tx.ClosingDate, tx.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert transaction")
	}
	return nil
}

func (s *SQLiteStore) ListActiveTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT transaction_id, user_id, client_id, address, price, status, contract_date, closing_date, created_at
		 FROM transactions
		 WHERE user_id = ? AND status NOT IN (?, ?)
		 ORDER BY closing_date ASC LIMIT ?`,
		userID, string(domain.TransactionStatusClosed), string(domain.TransactionStatusCancelled), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query transactions")
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var price sql.NullFloat64
		if err := rows.Scan(&t.TransactionID, &t.UserID, &t.ClientID, &t.Address, &price,
			&t.Status, &t.ContractDate, &t.ClosingDate, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan transaction")
		}
		t.Price = price.Float64
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// --- Deadlines ---

func (s *SQLiteStore) CreateDeadline(ctx context.Context, d *domain.Deadline) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deadlines (deadline_id, transaction_id, user_id, title, due_date, completed)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		d.DeadlineID, d.TransactionID, d.UserID, d.Title, d.DueDate)
	if err != nil {
		return errors.Wrap(err, "failed to insert deadline")
	}
	return nil
}

func (s *SQLiteStore) ListPendingDeadlines(ctx context.Context, userID string, limit int) ([]domain.Deadline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT deadline_id, transaction_id, user_id, title, due_date, completed, completed_at
		 FROM deadlines WHERE user_id = ? AND completed = 0
		 ORDER BY due_date ASC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query deadlines")
	}
	defer rows.Close()

	var deadlines []domain.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, err
		}
		deadlines = append(deadlines, *d)
	}
	return deadlines, rows.Err()
}

func (s *SQLiteStore) FindPendingDeadlineByTitle(ctx context.Context, userID, title string) (*domain.Deadline, error) {
	norm := normalizeName(title)
	row := s.db.QueryRowContext(ctx,
		`SELECT deadline_id, transaction_id, user_id, title, due_date, completed, completed_at
		 FROM deadlines
		 WHERE user_id = ? AND completed = 0 AND LOWER(title) LIKE '%' || ? || '%'
		 ORDER BY due_date ASC LIMIT 1`, userID, norm)
	d, err := scanDeadline(row)
	if err == errNoDeadline {
		return nil, nil
	}
	return d, err
}

var errNoDeadline = errors.New("no deadline row")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeadline(row rowScanner) (*domain.Deadline, error) {
	var d domain.Deadline
	var completed int
	var completedAt sql.NullTime
	err := row.Scan(&d.DeadlineID, &d.TransactionID, &d.UserID, &d.Title, &d.DueDate, &completed, &completedAt)
	if err == sql.ErrNoRows {
		return nil, errNoDeadline
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan deadline")
	}
	d.Completed = completed != 0
	if completedAt.Valid {
		t := completedAt.Time
		d.CompletedAt = &t
	}
	return &d, nil
}

func (s *SQLiteStore) CompleteDeadline(ctx context.Context, deadlineID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deadlines SET completed = 1, completed_at = ? WHERE deadline_id = ? AND completed = 0`,
		time.Now().UTC(), deadlineID)
	if err != nil {
		return errors.Wrap(err, "failed to complete deadline")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read update result")
	}
	if affected == 0 {
		return errors.Errorf("deadline %s not found or already completed", deadlineID)
	}
	return nil
}

// --- History ---

func (s *SQLiteStore) AppendHistory(ctx context.Context, msg *domain.HistoryMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (message_id, owner_key, session_id, user_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.OwnerKey, msg.SessionID, msg.UserID, string(msg.Role), msg.Content, msg.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to append history")
	}
	return nil
}

func (s *SQLiteStore) RecentHistory(ctx context.Context, ownerKey string, limit int) ([]domain.HistoryMessage, error) {
	// Newest window first, then flipped so callers get oldest-first order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, owner_key, session_id, user_id, role, content, created_at FROM (
			SELECT rowid, message_id, owner_key, session_id, user_id, role, content, created_at
			FROM history WHERE owner_key = ?
			ORDER BY created_at DESC, rowid DESC LIMIT ?
		 ) ORDER BY created_at ASC, rowid ASC`, ownerKey, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	defer rows.Close()

	var msgs []domain.HistoryMessage
	for rows.Next() {
		var m domain.HistoryMessage
		var sessionID sql.NullString
		if err := rows.Scan(&m.MessageID, &m.OwnerKey, &sessionID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan history message")
		}
		m.SessionID = sessionID.String
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// --- Runs and events ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, user_id, session_id, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.UserID, run.SessionID, string(run.Status), run.StartedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert run")
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, user_id, session_id, status, started_at, ended_at, error
		 FROM runs WHERE run_id = ?`, runID)

	var r domain.Run
	var sessionID sql.NullString
	var endedAt sql.NullTime
	var errData sql.NullString
	err := row.Scan(&r.RunID, &r.UserID, &sessionID, &r.Status, &r.StartedAt, &endedAt, &errData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan run")
	}
	r.SessionID = sessionID.String
	if endedAt.Valid {
		t := endedAt.Time
		r.EndedAt = &t
	}
	if errData.Valid && errData.String != "" {
		r.Error = json.RawMessage(errData.String)
	}
	return &r, nil
}

func (s *SQLiteStore) UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData json.RawMessage) error {
	var errText any
	if len(errData) > 0 {
		errText = string(errData)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ?, error = ? WHERE run_id = ?`,
		string(status), time.Now().UTC(), errText, runID)
	if err != nil {
		return errors.Wrap(err, "failed to update run")
	}
	return nil
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, event *domain.Event) error {
	var payload any
	if len(event.Payload) > 0 {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, run_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.RunID, event.Ts, string(event.Type), payload)
	if err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	return nil
}

func (s *SQLiteStore) ListRunEvents(ctx context.Context, runID string, limit int) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, run_id, ts, type, payload FROM events
		 WHERE run_id = ? ORDER BY ts ASC, rowid ASC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.EventID, &e.RunID, &e.Ts, &e.Type, &payload); err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		if payload.Valid && payload.String != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
