package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the current state of a conversation's finite state machine.
//
//	Collecting --(required fields complete)--> Confirming
//	Confirming --(edit)--> Collecting            (record retained)
//	Confirming --(confirm, record valid)--> GeneratingPlan
//	GeneratingPlan --(success)--> ShowingResult
//	GeneratingPlan --(failure)--> Confirming     (record retained)
//	any --(clear / new plan)--> Collecting       (record and log cleared)
//
// No phase is terminal.
type Phase string

const (
	PhaseCollecting     Phase = "collecting"
	PhaseConfirming     Phase = "confirming"
	PhaseGeneratingPlan Phase = "generating_plan"
	PhaseShowingResult  Phase = "showing_result"
)

// ConversationSnapshot is a read-only copy of a conversation's state, handed
// to rendering and persistence layers. Mutating a snapshot has no effect on
// the live conversation.
type ConversationSnapshot struct {
	ID     uuid.UUID    `json:"id"`
	Phase  Phase        `json:"phase"`
	Demand DemandRecord `json:"demand"`
	Turns  []ChatTurn   `json:"turns"`
	Plan   string       `json:"plan,omitempty"`
}

// Draft is a persisted conversation state, one per owner. Saving overwrites
// the owner's previous draft; loading restores the full snapshot.
type Draft struct {
	ID        uuid.UUID
	UserID    string
	Phase     Phase
	Demand    DemandRecord
	Turns     []ChatTurn
	Plan      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TravelPlan is one generated plan kept in the per-user history.
type TravelPlan struct {
	ID        uuid.UUID
	UserID    string
	Demand    DemandRecord
	Plan      string
	CreatedAt time.Time
}
