package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/planmate/backend/internal/domain"
)

// PlanRepo defines the persistence operations for the generated-plan history.
type PlanRepo interface {
	// Add appends a generated plan to the user's history and returns the
	// persisted record with DB-generated fields populated.
	Add(ctx context.Context, plan domain.TravelPlan) (domain.TravelPlan, error)

	// ListByUser returns the user's generated plans, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.TravelPlan, error)
}

// pgPlanRepo is the Postgres implementation of PlanRepo.
type pgPlanRepo struct {
	db db
}

// NewPlanRepo constructs a PlanRepo backed by the provided db connection.
func NewPlanRepo(db db) PlanRepo {
	return &pgPlanRepo{db: db}
}

// Add inserts one history row. The demand snapshot that produced the plan is
// stored alongside it so history entries are self-describing.
func (r *pgPlanRepo) Add(ctx context.Context, plan domain.TravelPlan) (domain.TravelPlan, error) {
	demandJSON, err := json.Marshal(plan.Demand)
	if err != nil {
		return domain.TravelPlan{}, fmt.Errorf("repo.PlanRepo.Add: encode demand: %w", err)
	}

	const q = `
		INSERT INTO travel_plans (user_id, demand, plan)
		VALUES (@user_id, @demand, @plan)
		RETURNING id, user_id, demand, plan, created_at`

	args := pgx.NamedArgs{
		"user_id": plan.UserID,
		"demand":  demandJSON,
		"plan":    plan.Plan,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanPlan(row)
	if err != nil {
		return domain.TravelPlan{}, fmt.Errorf("repo.PlanRepo.Add: %w", err)
	}
	return result, nil
}

// ListByUser returns the user's plans ordered by created_at descending.
func (r *pgPlanRepo) ListByUser(ctx context.Context, userID string) ([]domain.TravelPlan, error) {
	const q = `
		SELECT id, user_id, demand, plan, created_at
		FROM travel_plans
		WHERE user_id = @user_id
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.PlanRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	var plans []domain.TravelPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.PlanRepo.ListByUser: scan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PlanRepo.ListByUser: rows: %w", err)
	}

	return plans, nil
}

// scanPlan maps a single database row into a domain.TravelPlan.
func scanPlan(s scanner) (domain.TravelPlan, error) {
	var (
		p          domain.TravelPlan
		id         pgtype.UUID
		demandJSON []byte
	)

	err := s.Scan(&id, &p.UserID, &demandJSON, &p.Plan, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TravelPlan{}, domain.ErrNotFound
		}
		return domain.TravelPlan{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	if err := json.Unmarshal(demandJSON, &p.Demand); err != nil {
		return domain.TravelPlan{}, fmt.Errorf("decode demand: %w", err)
	}

	return p, nil
}
