// Package coach holds the AI coach conversation: the in-memory transcript,
// the proposals extracted from it and the review of queued tasks.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/claude/futurecoach/internal/models"
)

var (
	// ErrBusy is returned when a send or confirm is already in flight.
	ErrBusy = errors.New("a coach request is already in progress")
	// ErrProposalIndex is returned for an out-of-range proposal index.
	ErrProposalIndex = errors.New("proposal index out of range")
	// ErrEmptyMessage is returned when Send is called with blank text.
	ErrEmptyMessage = errors.New("message is empty")
)

// dedupeSpace namespaces proposal dedupe keys.
var dedupeSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("futurecoach/proposals"))

// Backend is the gateway surface of the chat flow.
type Backend interface {
	Chat(ctx context.Context, req models.ChatRequest) (models.ChatReply, error)
	Interpret(ctx context.Context, req models.InterpretRequest) (models.InterpretResult, error)
	QueueTasks(ctx context.Context, items []models.TaskCreate) ([]models.Task, error)
}

// Snapshot is the renderable state of a conversation.
type Snapshot struct {
	Scope     models.Scope         `json:"scope"`
	Messages  []models.ChatMessage `json:"messages"`
	Proposals []models.Proposal    `json:"proposals"`
	Note      string               `json:"note,omitempty"`
}

// Conversation is one chat panel. It is safe for concurrent use; Send and
// Confirm are guarded so a second call while one is in flight gets ErrBusy.
type Conversation struct {
	backend Backend
	userID  int
	logger  *slog.Logger

	busy atomic.Bool

	mu        sync.Mutex
	scope     models.Scope
	messages  []models.ChatMessage
	proposals []models.Proposal
	note      string
}

type Option func(*Conversation)

func WithLogger(l *slog.Logger) Option {
	return func(c *Conversation) { c.logger = l }
}

// WithScope sets the initial scope; unknown values mean general.
func WithScope(s string) Option {
	return func(c *Conversation) { c.scope = models.ParseScope(s) }
}

func New(backend Backend, userID int, opts ...Option) *Conversation {
	c := &Conversation{
		backend: backend,
		userID:  userID,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		scope:   models.ScopeGeneral,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the conversation state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	return Snapshot{
		Scope:     c.scope,
		Messages:  append([]models.ChatMessage{}, c.messages...),
		Proposals: append([]models.Proposal{}, c.proposals...),
		Note:      c.note,
	}
}

// SetScope switches the persona used for subsequent messages.
func (c *Conversation) SetScope(s string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scope = models.ParseScope(s)
	return c.snapshotLocked()
}

// Reset clears the transcript, the pending proposals and the note.
func (c *Conversation) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages, c.proposals, c.note = nil, nil, ""
	return c.snapshotLocked()
}

// Send appends text as a user message, asks the coach and appends the reply.
// Scheduling-like messages outside the nutrition scope are also interpreted
// into proposals. If the chat call fails the user message stays in the
// transcript and the error is returned. An interpret failure only loses the
// proposals.
func (c *Conversation) Send(ctx context.Context, text string) (Snapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.Snapshot(), ErrEmptyMessage
	}
	if !c.busy.CompareAndSwap(false, true) {
		return c.Snapshot(), ErrBusy
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	c.messages = append(c.messages, models.ChatMessage{Role: models.RoleUser, Content: text})
	req := models.ChatRequest{
		Messages: append([]models.ChatMessage{}, c.messages...),
		UserID:   c.userID,
		Scope:    c.scope,
	}
	c.mu.Unlock()

	reply, err := c.backend.Chat(ctx, req)
	if err != nil {
		return c.Snapshot(), fmt.Errorf("coach chat: %w", err)
	}

	c.mu.Lock()
	c.messages = append(c.messages, models.ChatMessage{Role: models.RoleAssistant, Content: reply.Content})
	interpret := req.Scope != models.ScopeNutrition && WantsPlan(text)
	transcript := append([]models.ChatMessage{}, c.messages...)
	c.mu.Unlock()

	if !interpret {
		return c.Snapshot(), nil
	}

	res, err := c.backend.Interpret(ctx, models.InterpretRequest{Messages: transcript, UserID: c.userID})
	if err != nil {
		c.logger.Warn("interpret failed", "user_id", c.userID, "error", err)
		return c.Snapshot(), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.note = strings.TrimSpace(res.AssistantText)
	if c.note != "" {
		c.messages = append(c.messages, models.ChatMessage{Role: models.RoleAssistant, Content: c.note})
	}
	c.proposals = append([]models.Proposal{}, res.Proposals...)
	c.logger.Debug("interpreted message", "proposals", len(res.Proposals))
	return c.snapshotLocked(), nil
}

// Confirm queues proposal i for approval and drops it from the pending list.
// The proposal is not applied to the calendar by the client.
func (c *Conversation) Confirm(ctx context.Context, i int) (models.Task, Snapshot, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return models.Task{}, c.Snapshot(), ErrBusy
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	if i < 0 || i >= len(c.proposals) {
		c.mu.Unlock()
		return models.Task{}, c.Snapshot(), ErrProposalIndex
	}
	p := c.proposals[i]
	c.mu.Unlock()

	tasks, err := c.backend.QueueTasks(ctx, []models.TaskCreate{{
		UserID:                    c.userID,
		Intent:                    p.Intent,
		Payload:                   p.Payload,
		Summary:                   p.Summary,
		Confidence:                p.Confidence,
		RequiresConfirmation:      p.RequiresConfirmation,
		RequiresSuperConfirmation: p.RequiresSuperConfirmation,
		DedupeKey:                 DedupeKey(p),
	}})
	if err != nil {
		return models.Task{}, c.Snapshot(), fmt.Errorf("queue proposal: %w", err)
	}
	if len(tasks) == 0 {
		return models.Task{}, c.Snapshot(), errors.New("queue proposal: backend returned no task")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(p)
	c.logger.Info("proposal queued", "task_id", tasks[0].ID, "intent", p.Intent)
	return tasks[0], c.snapshotLocked(), nil
}

// Dismiss drops proposal i locally.
func (c *Conversation) Dismiss(i int) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.proposals) {
		return c.snapshotLocked(), ErrProposalIndex
	}
	c.proposals = append(c.proposals[:i:i], c.proposals[i+1:]...)
	return c.snapshotLocked(), nil
}

// removeLocked drops p by identity; the list may have been replaced while
// the queue call was in flight.
func (c *Conversation) removeLocked(p models.Proposal) {
	key := DedupeKey(p)
	for j, q := range c.proposals {
		if DedupeKey(q) == key {
			c.proposals = append(c.proposals[:j:j], c.proposals[j+1:]...)
			return
		}
	}
}

// DedupeKey derives a stable key from the intent and the compacted payload,
// so confirming the same proposal twice maps to the same task.
func DedupeKey(p models.Proposal) string {
	var buf bytes.Buffer
	buf.WriteString(string(p.Intent))
	buf.WriteByte('\n')
	if err := json.Compact(&buf, p.Payload); err != nil {
		buf.Write(p.Payload)
	}
	return uuid.NewSHA1(dedupeSpace, buf.Bytes()).String()
}
