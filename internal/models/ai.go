package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the coach transcript.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Scope selects the coaching persona on the backend.
type Scope string

const (
	ScopePlanning  Scope = "planning"
	ScopeNutrition Scope = "nutrition"
	ScopeGeneral   Scope = "general"
)

// ParseScope maps user input to a scope; unknown values fall back to general.
func ParseScope(s string) Scope {
	switch Scope(s) {
	case ScopePlanning, ScopeNutrition:
		return Scope(s)
	}
	return ScopeGeneral
}

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	UserID   int           `json:"user_id"`
	Scope    Scope         `json:"scope,omitempty"`
}

// ChatReply is the assistant's answer.
type ChatReply struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (r ChatReply) Validate() error {
	if r.Role != "" && r.Role != RoleAssistant {
		return fmt.Errorf("chat reply: unexpected role %q", r.Role)
	}
	if r.Content == "" {
		return fmt.Errorf("chat reply: empty content")
	}
	return nil
}

// InterpretRequest is the body of POST /ai/plan/interpret.
type InterpretRequest struct {
	Messages []ChatMessage `json:"messages"`
	UserID   int           `json:"user_id"`
}

// InterpretResult carries structured proposals extracted from a conversation
// plus an optional assistant note.
type InterpretResult struct {
	AssistantText string     `json:"assistant_text"`
	Proposals     []Proposal `json:"proposals"`
}

func (r InterpretResult) Validate() error {
	for i, p := range r.Proposals {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("proposal %d: %w", i, err)
		}
	}
	return nil
}

// Intent tags what a proposal would change.
type Intent string

const (
	IntentAddWorkout    Intent = "add_workout"
	IntentMoveWorkout   Intent = "move_workout"
	IntentEditWorkout   Intent = "edit_workout"
	IntentUpsertSets    Intent = "upsert_sets"
	IntentDeleteWorkout Intent = "delete_workout"
	IntentBulkPlan      Intent = "bulk_plan"
)

// Proposal is a suggested change awaiting human confirmation. The payload is
// opaque to the client beyond schema validation.
type Proposal struct {
	Intent                    Intent          `json:"intent"`
	Payload                   json.RawMessage `json:"payload"`
	Summary                   string          `json:"summary"`
	Confidence                float64         `json:"confidence"`
	RequiresConfirmation      bool            `json:"requires_confirmation"`
	RequiresSuperConfirmation bool            `json:"requires_super_confirmation"`
}

// UnmarshalJSON applies the backend's defaults for omitted fields.
func (p *Proposal) UnmarshalJSON(data []byte) error {
	type raw Proposal
	out := raw{Confidence: 0.7, RequiresConfirmation: true}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*p = Proposal(out)
	return nil
}

// Validate checks the intent, the confidence range and the payload schema.
func (p Proposal) Validate() error {
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", p.Confidence)
	}
	if len(bytes.TrimSpace(p.Payload)) == 0 {
		return fmt.Errorf("%s: missing payload", p.Intent)
	}
	var v interface{ validate() error }
	switch p.Intent {
	case IntentAddWorkout:
		v = &AddWorkoutPayload{}
	case IntentMoveWorkout:
		v = &MoveWorkoutPayload{}
	case IntentEditWorkout:
		v = &EditWorkoutPayload{}
	case IntentUpsertSets:
		v = &UpsertSetsPayload{}
	case IntentDeleteWorkout:
		v = &DeleteWorkoutPayload{}
	case IntentBulkPlan:
		v = &BulkPlanPayload{}
	default:
		return fmt.Errorf("unknown intent %q", p.Intent)
	}
	if err := json.Unmarshal(p.Payload, v); err != nil {
		return fmt.Errorf("invalid payload for intent %q: %w", p.Intent, err)
	}
	if err := v.validate(); err != nil {
		return fmt.Errorf("invalid payload for intent %q: %w", p.Intent, err)
	}
	return nil
}

type AddWorkoutPayload struct {
	Date  Date   `json:"date"`
	Title string `json:"title"`
	Notes string `json:"notes"`
}

func (p *AddWorkoutPayload) validate() error {
	if !p.Date.Valid() {
		return fmt.Errorf("date %q", p.Date)
	}
	if p.Title == "" {
		return fmt.Errorf("empty title")
	}
	return nil
}

type MoveWorkoutPayload struct {
	WorkoutID int  `json:"workout_id"`
	NewDate   Date `json:"new_date"`
}

func (p *MoveWorkoutPayload) validate() error {
	if p.WorkoutID <= 0 {
		return fmt.Errorf("workout_id %d", p.WorkoutID)
	}
	if !p.NewDate.Valid() {
		return fmt.Errorf("new_date %q", p.NewDate)
	}
	return nil
}

type EditWorkoutPayload struct {
	WorkoutID int     `json:"workout_id"`
	Title     *string `json:"title,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	Status    *Status `json:"status,omitempty"`
}

func (p *EditWorkoutPayload) validate() error {
	if p.WorkoutID <= 0 {
		return fmt.Errorf("workout_id %d", p.WorkoutID)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("status %q", *p.Status)
	}
	return nil
}

// SetSpec describes Count identical sets inside an upsert_sets proposal.
type SetSpec struct {
	Exercise string   `json:"exercise"`
	Reps     int      `json:"reps"`
	Weight   *float64 `json:"weight,omitempty"`
	Count    int      `json:"count"`
}

type UpsertSetsPayload struct {
	WorkoutID int       `json:"workout_id"`
	Mode      string    `json:"mode"`
	Sets      []SetSpec `json:"sets"`
}

func (p *UpsertSetsPayload) validate() error {
	if p.WorkoutID <= 0 {
		return fmt.Errorf("workout_id %d", p.WorkoutID)
	}
	switch p.Mode {
	case "", "append", "replace":
	default:
		return fmt.Errorf("mode %q", p.Mode)
	}
	for i, s := range p.Sets {
		if s.Reps < 1 || s.Reps > 100 {
			return fmt.Errorf("sets[%d].reps %d out of range [1,100]", i, s.Reps)
		}
		if s.Count < 1 || s.Count > 50 {
			return fmt.Errorf("sets[%d].count %d out of range [1,50]", i, s.Count)
		}
	}
	return nil
}

type DeleteWorkoutPayload struct {
	WorkoutID int    `json:"workout_id"`
	Reason    string `json:"reason,omitempty"`
}

func (p *DeleteWorkoutPayload) validate() error {
	if p.WorkoutID <= 0 {
		return fmt.Errorf("workout_id %d", p.WorkoutID)
	}
	return nil
}

type BulkPlanDay struct {
	Date  Date   `json:"date"`
	Title string `json:"title"`
	Notes string `json:"notes"`
}

type BulkPlanPayload struct {
	Days []BulkPlanDay `json:"days"`
}

func (p *BulkPlanPayload) validate() error {
	if len(p.Days) < 1 || len(p.Days) > 14 {
		return fmt.Errorf("%d days, want 1..14", len(p.Days))
	}
	for i, d := range p.Days {
		if !d.Date.Valid() {
			return fmt.Errorf("days[%d].date %q", i, d.Date)
		}
	}
	return nil
}

// TaskStatus is the approval state of a queued proposal.
type TaskStatus string

const (
	TaskQueued   TaskStatus = "queued"
	TaskApproved TaskStatus = "approved"
	TaskRejected TaskStatus = "rejected"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskQueued, TaskApproved, TaskRejected:
		return true
	}
	return false
}

// TaskCreate is one item of the POST /ai/tasks/queue batch.
type TaskCreate struct {
	UserID                    int             `json:"user_id"`
	Intent                    Intent          `json:"intent"`
	Payload                   json.RawMessage `json:"payload"`
	Summary                   string          `json:"summary"`
	Confidence                float64         `json:"confidence"`
	RequiresConfirmation      bool            `json:"requires_confirmation"`
	RequiresSuperConfirmation bool            `json:"requires_super_confirmation"`
	DedupeKey                 string          `json:"dedupe_key,omitempty"`
}

// Task is a proposal stored in the backend's approval queue.
type Task struct {
	ID                        int             `json:"id"`
	UserID                    int             `json:"user_id"`
	Intent                    Intent          `json:"intent"`
	Payload                   json.RawMessage `json:"payload"`
	Summary                   string          `json:"summary"`
	Confidence                float64         `json:"confidence"`
	RequiresConfirmation      bool            `json:"requires_confirmation"`
	RequiresSuperConfirmation bool            `json:"requires_super_confirmation"`
	Status                    TaskStatus      `json:"status"`
	DedupeKey                 string          `json:"dedupe_key,omitempty"`
	CreatedAt                 Timestamp       `json:"created_at"`
	UpdatedAt                 Timestamp       `json:"updated_at"`
}

func (t Task) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("task: invalid id %d", t.ID)
	}
	if t.UserID <= 0 {
		return fmt.Errorf("task %d: invalid user_id %d", t.ID, t.UserID)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task %d: unknown status %q", t.ID, t.Status)
	}
	return nil
}
