package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetnav/internal/model"
)

// Postgres persists solve runs, solutions, and webhook state. It uses the
// pgx stdlib driver so the rest of the code stays on database/sql.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema creates the tables if they do not exist. Dev helper; real
// deployments run migrations out of band.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS solve_runs (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			error TEXT,
			summary JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS solutions (
			run_id UUID PRIMARY KEY REFERENCES solve_runs(id),
			paths JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			url TEXT NOT NULL,
			events TEXT[] NOT NULL,
			secret TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			subscription_id TEXT,
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT,
			payload JSONB,
			status TEXT NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error TEXT,
			response_code INT,
			latency_ms INT
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) CreateSolveRun(ctx context.Context, tenantID string) (model.SolveRun, error) {
	run := model.SolveRun{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Status:    "pending",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO solve_runs (id, tenant_id, status) VALUES ($1,$2,$3)`,
		run.ID, tenantID, run.Status)
	if err != nil {
		return model.SolveRun{}, err
	}
	return run, nil
}

func (p *Postgres) GetSolveRun(ctx context.Context, tenantID, id string) (model.SolveRun, error) {
	var (
		run     model.SolveRun
		created time.Time
		errMsg  sql.NullString
		summary []byte
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, tenant_id, status, created_at, error, summary FROM solve_runs WHERE id=$1 AND tenant_id=$2`,
		id, tenantID).Scan(&run.ID, &run.TenantID, &run.Status, &created, &errMsg, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SolveRun{}, ErrNotFound
	}
	if err != nil {
		return model.SolveRun{}, err
	}
	run.CreatedAt = created.UTC().Format(time.RFC3339)
	run.Error = errMsg.String
	if len(summary) > 0 {
		var s model.SolveSummary
		if err := json.Unmarshal(summary, &s); err == nil {
			run.Summary = &s
		}
	}
	return run, nil
}

func (p *Postgres) ListSolveRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.SolveRun, string, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT id::text, tenant_id, status, created_at, error, summary FROM solve_runs WHERE tenant_id=$1`
	args := []any{tenantID}
	if cursor != "" {
		q += ` AND created_at > (SELECT created_at FROM solve_runs WHERE id=$2)`
		args = append(args, cursor)
	}
	q += fmt.Sprintf(` ORDER BY created_at ASC LIMIT %d`, limit)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.SolveRun{}
	for rows.Next() {
		var (
			run     model.SolveRun
			created time.Time
			errMsg  sql.NullString
			summary []byte
		)
		if err := rows.Scan(&run.ID, &run.TenantID, &run.Status, &created, &errMsg, &summary); err != nil {
			return nil, "", err
		}
		run.CreatedAt = created.UTC().Format(time.RFC3339)
		run.Error = errMsg.String
		if len(summary) > 0 {
			var s model.SolveSummary
			if err := json.Unmarshal(summary, &s); err == nil {
				run.Summary = &s
			}
		}
		out = append(out, run)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) MarkSolveRunning(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE solve_runs SET status='running' WHERE id=$1`, id)
	return err
}

func (p *Postgres) CompleteSolveRun(ctx context.Context, id string, summary model.SolveSummary, sol model.Solution) error {
	sb, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	pb, err := json.Marshal(sol)
	if err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `UPDATE solve_runs SET status='completed', summary=$2 WHERE id=$1`, id, sb); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO solutions (run_id, paths) VALUES ($1,$2) ON CONFLICT (run_id) DO UPDATE SET paths=EXCLUDED.paths`,
		id, pb); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) FailSolveRun(ctx context.Context, id, errMsg string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE solve_runs SET status='failed', error=$2 WHERE id=$1`, id, errMsg)
	return err
}

func (p *Postgres) GetSolution(ctx context.Context, tenantID, id string) (model.Solution, error) {
	var paths []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT s.paths FROM solutions s JOIN solve_runs r ON r.id=s.run_id WHERE s.run_id=$1 AND r.tenant_id=$2`,
		id, tenantID).Scan(&paths)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sol model.Solution
	if err := json.Unmarshal(paths, &sol); err != nil {
		return nil, err
	}
	return sol, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	_, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.TenantID, s.URL, pqStringArray(s.Events), s.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, url, events, secret FROM subscriptions WHERE tenant_id=$1 AND $2 = ANY(events)`,
		tenantID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT id::text, tenant_id, url, events, secret FROM subscriptions WHERE tenant_id=$1`
	args := []any{tenantID}
	if cursor != "" {
		q += ` AND id > $2`
		args = append(args, cursor)
	}
	q += fmt.Sprintf(` ORDER BY id LIMIT %d`, limit)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	subs, err := scanSubscriptions(rows)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(subs) == limit {
		next = subs[len(subs)-1].ID
	}
	return subs, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	return err
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status) VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')`,
		id, tenantID, subscriptionID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, COALESCE(subscription_id,''), event_type, url, COALESCE(secret,''), payload, status, attempts
		 FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	status := "pending"
	if success {
		status = "delivered"
	}
	var next any
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status=$2, attempts=attempts+1, next_attempt_at=COALESCE($3, next_attempt_at),
		 last_error=$4, response_code=$5, latency_ms=$6 WHERE id=$1`,
		id, status, next, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, lastError, responseCode, latencyMs)
	return err
}

func scanSubscriptions(rows *sql.Rows) ([]model.Subscription, error) {
	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.TenantID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		s.Events = parsePQStringArray(string(events))
		out = append(out, s)
	}
	return out, rows.Err()
}

// pqStringArray renders a []string as a Postgres text[] literal.
func pqStringArray(items []string) string {
	out := "{"
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += `"` + s + `"`
	}
	return out + "}"
}

func parsePQStringArray(raw string) []string {
	if len(raw) < 2 {
		return nil
	}
	raw = raw[1 : len(raw)-1]
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range splitPQ(raw) {
		if len(part) >= 2 && part[0] == '"' && part[len(part)-1] == '"' {
			part = part[1 : len(part)-1]
		}
		out = append(out, part)
	}
	return out
}

func splitPQ(s string) []string {
	var out []string
	cur := ""
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			cur += string(c)
		case c == ',' && !inQuote:
			out = append(out, cur)
			cur = ""
		default:
			cur += string(c)
		}
	}
	out = append(out, cur)
	return out
}
