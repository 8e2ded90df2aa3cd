// Package audit records the prompts sent to the generative model and
// what came back. Recording is best-effort: a failing sink is logged
// and never fails the operation being audited.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Entry is one audited generation attempt.
type Entry struct {
	ID           string    `db:"id"`
	RequesterKey string    `db:"requester_key"`
	Prompt       string    `db:"prompt"`
	Outcome      string    `db:"outcome"` // "success" or "failure"
	Detail       string    `db:"detail"`  // script title on success, failure message otherwise
	CreatedAt    time.Time `db:"created_at"`
}

// Sink receives audit entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// LogSink writes audit entries to the process log.
type LogSink struct{}

func (LogSink) Record(ctx context.Context, e Entry) error {
	log.Printf("audit: requester=%s outcome=%s detail=%q prompt_len=%d",
		e.RequesterKey, e.Outcome, e.Detail, len(e.Prompt))
	return nil
}

// PostgresSink appends audit entries to the demo_audit table.
type PostgresSink struct {
	db *sqlx.DB
}

func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// InitSchema creates the demo_audit table if it does not exist.
func (p *PostgresSink) InitSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS demo_audit (
            id            UUID PRIMARY KEY,
            requester_key TEXT NOT NULL,
            prompt        TEXT NOT NULL,
            outcome       TEXT NOT NULL,
            detail        TEXT NOT NULL,
            created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
        )`)
	return err
}

func (p *PostgresSink) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO demo_audit (id, requester_key, prompt, outcome, detail, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.RequesterKey, e.Prompt, e.Outcome, e.Detail, e.CreatedAt)
	return err
}
