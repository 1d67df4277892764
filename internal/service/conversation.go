// Package service contains the business logic for the travel demand API.
// Services own the live conversation registry, drive the conversation engine,
// and orchestrate the plan-generation and persistence collaborators.
// No SQL and no HTTP lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/planmate/backend/internal/conversation"
	"github.com/planmate/backend/internal/domain"
	"github.com/planmate/backend/internal/planner"
	"github.com/planmate/backend/internal/repo"
)

// DefaultTTL is how long an idle conversation stays in the registry before
// it is evicted. Saved drafts survive eviction; unsaved state does not.
const DefaultTTL = 2 * time.Hour

// ErrGeneratorUnavailable is returned by Confirm when no plan-generation
// backend is configured. The conversation stays in Confirming.
var ErrGeneratorUnavailable = errors.New("plan generation service is not configured")

// entry pairs a conversation with the mutex that serializes access to it.
// The engine itself is single-threaded; this is the only lock around it.
type entry struct {
	mu   sync.Mutex
	conv *conversation.Conversation
}

// ConversationService drives conversations end to end: message handling,
// confirmation and plan generation, drafts, and history.
//
// Live conversations are held in a TTL-evicting in-memory cache keyed by
// conversation ID. Each conversation is guarded by its own mutex, so two
// requests for the same conversation are serialized while requests for
// different conversations do not contend.
type ConversationService struct {
	registry  *gocache.Cache
	generator planner.Generator
	drafts    repo.DraftRepo
	plans     repo.PlanRepo
}

// NewConversationService constructs the service. generator may be nil when no
// generation backend is configured — Confirm then fails softly. drafts and
// plans may be nil in local-only mode; the handlers gate those endpoints on
// an authenticated user anyway.
func NewConversationService(generator planner.Generator, drafts repo.DraftRepo, plans repo.PlanRepo, ttl time.Duration) *ConversationService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ConversationService{
		registry:  gocache.New(ttl, ttl/2),
		generator: generator,
		drafts:    drafts,
		plans:     plans,
	}
}

// Start creates a new conversation and returns its initial snapshot (the
// assistant greeting is already the first turn).
func (s *ConversationService) Start(ctx context.Context) domain.ConversationSnapshot {
	conv := conversation.New()
	s.put(conv)
	return conv.Snapshot()
}

// Snapshot returns a read-only copy of the conversation state.
// Returns domain.ErrNotFound for unknown or expired conversation IDs.
func (s *ConversationService) Snapshot(ctx context.Context, id uuid.UUID) (domain.ConversationSnapshot, error) {
	e, err := s.get(id)
	if err != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Snapshot: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv.Snapshot(), nil
}

// Message feeds one user utterance (typed or transcribed from voice — the
// engine cannot tell) to the conversation and returns the updated snapshot.
// Empty input is rejected with domain.ErrValidation and changes nothing.
func (s *ConversationService) Message(ctx context.Context, id uuid.UUID, text string) (domain.ConversationSnapshot, error) {
	e, err := s.get(id)
	if err != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Message: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.conv.HandleMessage(text); err != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Message: %w", err)
	}
	return e.conv.Snapshot(), nil
}

// Confirm validates the demand record, moves the conversation to the
// generating phase, calls the plan-generation collaborator, and applies the
// result. The conversation's lock is released while the remote call runs, so
// a second confirm arriving mid-flight is rejected with
// domain.ErrGenerationInFlight instead of queueing a duplicate request.
//
// On generation failure the conversation returns to Confirming with the
// record intact and the upstream error is returned for the handler to
// surface. On success, if the caller is authenticated the plan is appended
// to their history; a history write failure is logged by the caller as a
// non-blocking notification and never fails the confirm.
func (s *ConversationService) Confirm(ctx context.Context, id uuid.UUID, userID string) (domain.ConversationSnapshot, error) {
	e, err := s.get(id)
	if err != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Confirm: %w", err)
	}

	e.mu.Lock()
	if s.generator == nil {
		snap := e.conv.Snapshot()
		e.mu.Unlock()
		return snap, fmt.Errorf("service.ConversationService.Confirm: %w", ErrGeneratorUnavailable)
	}
	record, err := e.conv.Confirm()
	e.mu.Unlock()
	if err != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Confirm: %w", err)
	}

	// The remote call runs without the conversation lock; the phase machine
	// is the gate against concurrent generation, not the mutex.
	plan, genErr := s.generator.Generate(ctx, record)

	e.mu.Lock()
	applyErr := e.conv.ApplyGenerationResult(plan, genErr)
	snap := e.conv.Snapshot()
	e.mu.Unlock()
	if applyErr != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Confirm: %w", applyErr)
	}
	if genErr != nil {
		return snap, fmt.Errorf("service.ConversationService.Confirm: %w", genErr)
	}

	if userID != "" && s.plans != nil {
		if _, histErr := s.plans.Add(ctx, domain.TravelPlan{UserID: userID, Demand: record, Plan: plan}); histErr != nil {
			return snap, &HistoryWriteError{Err: histErr}
		}
	}

	return snap, nil
}

// Edit moves an awaiting-confirmation conversation back to collecting so the
// user can revise fields; the record is retained.
func (s *ConversationService) Edit(ctx context.Context, id uuid.UUID) (domain.ConversationSnapshot, error) {
	e, err := s.get(id)
	if err != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Edit: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.conv.Edit(); err != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Edit: %w", err)
	}
	return e.conv.Snapshot(), nil
}

// Clear resets the conversation from any phase: record and log cleared,
// greeting re-seeded. It implements both the explicit clear and the
// "new plan" action.
func (s *ConversationService) Clear(ctx context.Context, id uuid.UUID) (domain.ConversationSnapshot, error) {
	e, err := s.get(id)
	if err != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.Clear: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.conv.Clear()
	return e.conv.Snapshot(), nil
}

// SaveDraft persists the conversation state for the given user. Invoked only
// on an explicit save action, never automatically per turn.
func (s *ConversationService) SaveDraft(ctx context.Context, id uuid.UUID, userID string) (domain.Draft, error) {
	if s.drafts == nil {
		return domain.Draft{}, fmt.Errorf("service.ConversationService.SaveDraft: draft store is not configured")
	}
	e, err := s.get(id)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("service.ConversationService.SaveDraft: %w", err)
	}

	e.mu.Lock()
	snap := e.conv.Snapshot()
	e.mu.Unlock()

	draft, err := s.drafts.Save(ctx, domain.Draft{
		ID:     snap.ID,
		UserID: userID,
		Phase:  snap.Phase,
		Demand: snap.Demand,
		Turns:  snap.Turns,
		Plan:   snap.Plan,
	})
	if err != nil {
		return domain.Draft{}, fmt.Errorf("service.ConversationService.SaveDraft: %w", err)
	}
	return draft, nil
}

// LoadDraft restores the user's saved draft as a live conversation and
// returns its snapshot. Returns domain.ErrNotFound when no draft exists.
func (s *ConversationService) LoadDraft(ctx context.Context, userID string) (domain.ConversationSnapshot, error) {
	if s.drafts == nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.LoadDraft: draft store is not configured")
	}
	draft, err := s.drafts.GetByUser(ctx, userID)
	if err != nil {
		return domain.ConversationSnapshot{}, fmt.Errorf("service.ConversationService.LoadDraft: %w", err)
	}

	conv := conversation.Restore(draft)
	s.put(conv)
	return conv.Snapshot(), nil
}

// DeleteDraft removes the user's saved draft. The live conversation, if any,
// stays registered. Returns domain.ErrNotFound when no draft exists.
func (s *ConversationService) DeleteDraft(ctx context.Context, userID string) error {
	if s.drafts == nil {
		return fmt.Errorf("service.ConversationService.DeleteDraft: draft store is not configured")
	}
	if err := s.drafts.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("service.ConversationService.DeleteDraft: %w", err)
	}
	return nil
}

// History returns the user's generated plans, newest first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *ConversationService) History(ctx context.Context, userID string) ([]domain.TravelPlan, error) {
	if s.plans == nil {
		return []domain.TravelPlan{}, nil
	}
	plans, err := s.plans.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.ConversationService.History: %w", err)
	}
	if plans == nil {
		return []domain.TravelPlan{}, nil
	}
	return plans, nil
}

func (s *ConversationService) put(conv *conversation.Conversation) {
	s.registry.Set(conv.ID().String(), &entry{conv: conv}, gocache.DefaultExpiration)
}

func (s *ConversationService) get(id uuid.UUID) (*entry, error) {
	v, ok := s.registry.Get(id.String())
	if !ok {
		return nil, domain.ErrNotFound
	}
	e := v.(*entry)
	// Sliding expiry: every access restarts the TTL clock, so only
	// conversations idle for the full TTL are evicted.
	s.registry.Set(id.String(), e, gocache.DefaultExpiration)
	return e, nil
}

// HistoryWriteError wraps a failed history append after a successful plan
// generation. The plan itself is fine; handlers surface this as a
// non-blocking status notification.
type HistoryWriteError struct {
	Err error
}

func (e *HistoryWriteError) Error() string {
	return "service: plan generated but history write failed: " + e.Err.Error()
}

func (e *HistoryWriteError) Unwrap() error { return e.Err }
