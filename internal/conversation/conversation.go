// Package conversation implements the turn-taking controller and the phase
// state machine for one travel-planning conversation.
//
// A Conversation is exclusively owned by its creator and performs no locking
// and no I/O of its own: every method is a synchronous state transition, and
// all interaction with collaborators (plan generation, persistence) happens
// outside, between Confirm and ApplyGenerationResult. Callers that share a
// Conversation across goroutines must serialize access themselves.
package conversation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planmate/backend/internal/demand"
	"github.com/planmate/backend/internal/domain"
	"github.com/planmate/backend/internal/extract"
)

// Canned assistant utterances. The conversation surface is Chinese, matching
// the patterns the extractor recognizes.
const (
	greeting = "您好！我是旅行规划助手，请告诉我您的旅行需求，例如目的地、出发和返回日期、预算、出行人数，以及您的偏好。您可以一次性告诉我，也可以分多次说明。"

	completeMsg = "所有信息已收集完整，请确认您的旅行需求。"

	editMsg = "好的，请告诉我您要修改的需求细节。"

	generationFailedMsg = "抱歉，生成旅行计划失败，请稍后重试。"
)

// Conversation holds the live state of one conversation: the phase machine,
// the demand record being assembled, and the append-only chat log.
type Conversation struct {
	id     uuid.UUID
	phase  domain.Phase
	record domain.DemandRecord
	turns  []domain.ChatTurn
	plan   string

	now func() time.Time // injectable clock for tests
}

// New starts a conversation in the Collecting phase with an empty demand
// record and the assistant greeting as the first turn.
func New() *Conversation {
	c := &Conversation{
		id:    uuid.New(),
		phase: domain.PhaseCollecting,
		now:   time.Now,
	}
	c.appendTurn(domain.RoleAssistant, greeting)
	return c
}

// Restore rebuilds a conversation from a persisted draft. The draft's turns
// are copied, so the caller keeps ownership of the slice it passed in.
func Restore(d domain.Draft) *Conversation {
	c := &Conversation{
		id:     d.ID,
		phase:  d.Phase,
		record: d.Demand,
		turns:  append([]domain.ChatTurn(nil), d.Turns...),
		plan:   d.Plan,
		now:    time.Now,
	}
	if c.phase == "" {
		c.phase = domain.PhaseCollecting
	}
	return c
}

// ID returns the conversation's identifier.
func (c *Conversation) ID() uuid.UUID { return c.id }

// Snapshot returns a read-only copy of the conversation state. The returned
// value shares nothing mutable with the live conversation.
func (c *Conversation) Snapshot() domain.ConversationSnapshot {
	return domain.ConversationSnapshot{
		ID:     c.id,
		Phase:  c.phase,
		Demand: c.record,
		Turns:  append([]domain.ChatTurn(nil), c.turns...),
		Plan:   c.plan,
	}
}

// HandleMessage processes one user utterance: it appends the user turn,
// extracts whatever demand fields the text contains, merges them into the
// record, and replies either with a missing-field prompt (staying in
// Collecting) or with the confirmation request (moving to Confirming).
//
// A message while Confirming is treated as an implicit edit: the phase drops
// back to Collecting (record retained) and the utterance is processed
// normally. Messages are rejected with domain.ErrInvalidPhase while a plan is
// being generated or shown, and empty or whitespace-only input is rejected
// with domain.ErrValidation without any state change.
func (c *Conversation) HandleMessage(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &domain.ValidationError{Reason: domain.EmptyMessage, Message: "请输入消息内容"}
	}

	switch c.phase {
	case domain.PhaseCollecting:
	case domain.PhaseConfirming:
		c.phase = domain.PhaseCollecting
	default:
		return "", domain.ErrInvalidPhase
	}

	c.appendTurn(domain.RoleUser, text)

	partial := extract.Extract(text)
	c.record = demand.Merge(c.record, partial)

	missing := demand.Missing(c.record)

	var reply string
	if len(missing) == 0 {
		reply = completeMsg
		c.phase = domain.PhaseConfirming
	} else {
		reply = missingPrompt(missing)
	}

	c.appendTurn(domain.RoleAssistant, reply)
	return reply, nil
}

// Confirm gates the Confirming → GeneratingPlan transition. On success it
// returns a snapshot of the demand record for the plan-generation
// collaborator; the conversation stays in GeneratingPlan until
// ApplyGenerationResult is called.
//
// While GeneratingPlan, a second confirm is rejected with
// domain.ErrGenerationInFlight — exactly one generation request may be
// outstanding per conversation. A confirm on an invalid record surfaces the
// *domain.ValidationError and leaves the phase at Confirming.
func (c *Conversation) Confirm() (domain.DemandRecord, error) {
	switch c.phase {
	case domain.PhaseConfirming:
	case domain.PhaseGeneratingPlan:
		return domain.DemandRecord{}, domain.ErrGenerationInFlight
	default:
		return domain.DemandRecord{}, domain.ErrInvalidPhase
	}

	if err := demand.Validate(c.record); err != nil {
		return domain.DemandRecord{}, err
	}

	c.phase = domain.PhaseGeneratingPlan
	return c.record, nil
}

// ApplyGenerationResult resolves the outstanding generation request. On
// success the plan is recorded, appended to the chat log, and the phase moves
// to ShowingResult. On failure the phase returns to Confirming with the
// record intact so the user can retry. Calling it in any other phase is an
// error — there is nothing to resolve.
func (c *Conversation) ApplyGenerationResult(plan string, genErr error) error {
	if c.phase != domain.PhaseGeneratingPlan {
		return domain.ErrInvalidPhase
	}

	if genErr != nil {
		c.phase = domain.PhaseConfirming
		c.appendTurn(domain.RoleAssistant, generationFailedMsg)
		return nil
	}

	c.plan = plan
	c.phase = domain.PhaseShowingResult
	c.appendTurn(domain.RoleAssistant, plan)
	return nil
}

// Edit moves an awaiting-confirmation conversation back to Collecting so the
// user can revise fields. The demand record is retained — only fields the
// user restates will change.
func (c *Conversation) Edit() error {
	if c.phase != domain.PhaseConfirming {
		return domain.ErrInvalidPhase
	}
	c.phase = domain.PhaseCollecting
	c.appendTurn(domain.RoleAssistant, editMsg)
	return nil
}

// Clear resets the conversation from any phase: empty record, fresh chat log
// seeded with the greeting, no plan, phase Collecting. It is also the "new
// plan" action — both discard everything collected.
func (c *Conversation) Clear() {
	c.record = domain.DemandRecord{}
	c.turns = nil
	c.plan = ""
	c.phase = domain.PhaseCollecting
	c.appendTurn(domain.RoleAssistant, greeting)
}

func (c *Conversation) appendTurn(role domain.Role, content string) {
	c.turns = append(c.turns, domain.ChatTurn{
		Role:      role,
		Content:   content,
		CreatedAt: c.now().UTC(),
	})
}

// missingPrompt phrases the follow-up question for unmet required fields:
// singular phrasing for exactly one field, a 、-joined list for several.
func missingPrompt(missing []domain.FieldID) string {
	if len(missing) == 1 {
		return "请告诉我您的" + missing[0].Name() + "。"
	}
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = f.Name()
	}
	return "还需要以下信息：" + strings.Join(names, "、") + "。请继续补充。"
}
