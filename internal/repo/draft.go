// Package repo contains all database access logic for the travel demand API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/planmate/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DraftRepo defines the persistence operations for conversation drafts.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type DraftRepo interface {
	// Save upserts the owner's draft — each user keeps at most one — and
	// returns the persisted record with DB-generated fields populated.
	Save(ctx context.Context, draft domain.Draft) (domain.Draft, error)

	// GetByUser retrieves the draft owned by userID.
	// Returns domain.ErrNotFound when the user has no saved draft.
	GetByUser(ctx context.Context, userID string) (domain.Draft, error)

	// DeleteByUser removes the draft owned by userID.
	// Returns domain.ErrNotFound when the user has no saved draft.
	DeleteByUser(ctx context.Context, userID string) error
}

// pgDraftRepo is the Postgres implementation of DraftRepo.
type pgDraftRepo struct {
	db db
}

// NewDraftRepo constructs a DraftRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewDraftRepo(db db) DraftRepo {
	return &pgDraftRepo{db: db}
}

// Save upserts the user's draft. The demand record and the full chat log are
// stored as jsonb so a load restores the conversation wholesale.
func (r *pgDraftRepo) Save(ctx context.Context, draft domain.Draft) (domain.Draft, error) {
	demandJSON, turnsJSON, err := encodeDraft(draft)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("repo.DraftRepo.Save: encode: %w", err)
	}

	// The row ID is the conversation ID, not a generated surrogate: loading
	// a draft must restore the conversation under the ID the client already
	// holds. A re-save from a different conversation takes over the row.
	const q = `
		INSERT INTO drafts (id, user_id, phase, demand, turns, plan)
		VALUES (@id, @user_id, @phase, @demand, @turns, @plan)
		ON CONFLICT (user_id) DO UPDATE
		SET id         = EXCLUDED.id,
		    phase      = EXCLUDED.phase,
		    demand     = EXCLUDED.demand,
		    turns      = EXCLUDED.turns,
		    plan       = EXCLUDED.plan,
		    updated_at = now()
		RETURNING id, user_id, phase, demand, turns, plan, created_at, updated_at`

	args := pgx.NamedArgs{
		"id":      draft.ID,
		"user_id": draft.UserID,
		"phase":   string(draft.Phase),
		"demand":  demandJSON,
		"turns":   turnsJSON,
		"plan":    draft.Plan,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanDraft(row)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("repo.DraftRepo.Save: %w", err)
	}
	return result, nil
}

// GetByUser retrieves the draft owned by userID.
func (r *pgDraftRepo) GetByUser(ctx context.Context, userID string) (domain.Draft, error) {
	const q = `
		SELECT id, user_id, phase, demand, turns, plan, created_at, updated_at
		FROM drafts
		WHERE user_id = @user_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID})
	result, err := scanDraft(row)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("repo.DraftRepo.GetByUser: %w", err)
	}
	return result, nil
}

// DeleteByUser removes the draft owned by userID.
func (r *pgDraftRepo) DeleteByUser(ctx context.Context, userID string) error {
	const q = `DELETE FROM drafts WHERE user_id = @user_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return fmt.Errorf("repo.DraftRepo.DeleteByUser: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.DraftRepo.DeleteByUser: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// encodeDraft marshals the jsonb columns. Turns default to an empty JSON
// array rather than null so loads always yield a rangeable slice.
func encodeDraft(draft domain.Draft) (demandJSON, turnsJSON []byte, err error) {
	demandJSON, err = json.Marshal(draft.Demand)
	if err != nil {
		return nil, nil, err
	}
	if draft.Turns == nil {
		draft.Turns = []domain.ChatTurn{}
	}
	turnsJSON, err = json.Marshal(draft.Turns)
	if err != nil {
		return nil, nil, err
	}
	return demandJSON, turnsJSON, nil
}

// scanDraft maps a single database row into a domain.Draft, decoding the
// jsonb demand and turns columns.
func scanDraft(s scanner) (domain.Draft, error) {
	var (
		d          domain.Draft
		id         pgtype.UUID
		phase      string
		demandJSON []byte
		turnsJSON  []byte
	)

	err := s.Scan(&id, &d.UserID, &phase, &demandJSON, &turnsJSON, &d.Plan, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Draft{}, domain.ErrNotFound
		}
		return domain.Draft{}, err
	}

	d.ID = uuid.UUID(id.Bytes)
	d.Phase = domain.Phase(phase)
	if err := json.Unmarshal(demandJSON, &d.Demand); err != nil {
		return domain.Draft{}, fmt.Errorf("decode demand: %w", err)
	}
	if err := json.Unmarshal(turnsJSON, &d.Turns); err != nil {
		return domain.Draft{}, fmt.Errorf("decode turns: %w", err)
	}

	return d, nil
}
