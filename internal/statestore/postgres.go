package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"demodesk/internal/script"
)

// PostgresStore persists requester state in a single demo_state table,
// one row per requester with two optional JSONB sub-records.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing database handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore connects to the given DSN and pings it.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

// InitSchema creates the demo_state table if it does not exist.
func (p *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS demo_state (
            requester_key    TEXT PRIMARY KEY,
            provision_result JSONB,
            demo_script      JSONB,
            updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
        )`)
	if err != nil {
		return fmt.Errorf("failed to create demo_state table: %w", err)
	}
	return nil
}

// DB exposes the underlying handle so other Postgres-backed
// components (the audit sink) can share one connection pool.
func (p *PostgresStore) DB() *sqlx.DB {
	return p.db
}

// Close releases the underlying database handle.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Save(ctx context.Context, requesterKey string, result *ProvisionResult, s *script.DemoScript) error {
	resultJSON, err := marshalOrNil(sanitize(result))
	if err != nil {
		return fmt.Errorf("failed to encode provision result: %w", err)
	}
	scriptJSON, err := marshalOrNil(s)
	if err != nil {
		return fmt.Errorf("failed to encode demo script: %w", err)
	}

	// COALESCE keeps the existing sub-record when the caller omits one;
	// omission is never a destructive overwrite.
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO demo_state (requester_key, provision_result, demo_script, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (requester_key) DO UPDATE SET
            provision_result = COALESCE(EXCLUDED.provision_result, demo_state.provision_result),
            demo_script      = COALESCE(EXCLUDED.demo_script, demo_state.demo_script),
            updated_at       = now()`,
		requesterKey, resultJSON, scriptJSON)
	if err != nil {
		return fmt.Errorf("failed to save demo state: %w", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context, requesterKey string) (*State, error) {
	var row struct {
		ProvisionResult []byte `db:"provision_result"`
		DemoScript      []byte `db:"demo_script"`
	}
	err := p.db.GetContext(ctx, &row, `
        SELECT provision_result, demo_script
        FROM demo_state
        WHERE requester_key = $1`, requesterKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load demo state: %w", err)
	}

	state := &State{}
	if len(row.ProvisionResult) > 0 {
		var r ProvisionResult
		if uErr := json.Unmarshal(row.ProvisionResult, &r); uErr != nil {
			// An unparsable record is as good as no record; drop it so
			// the next provisioning run starts clean.
			log.Printf("warning: corrupt provision result for %s, clearing state: %v", requesterKey, uErr)
			if cErr := p.ClearAll(ctx, requesterKey); cErr != nil {
				log.Printf("warning: failed to clear corrupt state for %s: %v", requesterKey, cErr)
			}
			return nil, nil
		}
		state.Result = sanitize(&r)
	}
	if len(row.DemoScript) > 0 {
		var s script.DemoScript
		if uErr := json.Unmarshal(row.DemoScript, &s); uErr != nil {
			log.Printf("warning: corrupt demo script for %s, clearing it: %v", requesterKey, uErr)
			if cErr := p.ClearScript(ctx, requesterKey); cErr != nil {
				log.Printf("warning: failed to clear corrupt script for %s: %v", requesterKey, cErr)
			}
		} else {
			state.Script = &s
		}
	}
	if state.Result == nil && state.Script == nil {
		return nil, nil
	}
	return state, nil
}

func (p *PostgresStore) ClearScript(ctx context.Context, requesterKey string) error {
	_, err := p.db.ExecContext(ctx, `
        UPDATE demo_state SET demo_script = NULL, updated_at = now()
        WHERE requester_key = $1`, requesterKey)
	if err != nil {
		return fmt.Errorf("failed to clear demo script: %w", err)
	}
	return nil
}

func (p *PostgresStore) ClearAll(ctx context.Context, requesterKey string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM demo_state WHERE requester_key = $1`, requesterKey)
	if err != nil {
		return fmt.Errorf("failed to clear demo state: %w", err)
	}
	return nil
}

// marshalOrNil encodes a sub-record, mapping a nil pointer to an SQL
// NULL so COALESCE in Save can keep the stored value.
func marshalOrNil(v any) (any, error) {
	switch val := v.(type) {
	case *ProvisionResult:
		if val == nil {
			return nil, nil
		}
	case *script.DemoScript:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
