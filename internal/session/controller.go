// Package session drives the interactive query cycle: retrieve, assemble,
// build the prompt, generate, record the turn. One Controller serves one
// user session; multiple sessions in a process each get their own instance.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdoc/askdoc/internal/knowledge"
	"github.com/askdoc/askdoc/internal/prompt"
	"github.com/askdoc/askdoc/internal/retrieval"
)

// Parameter domains and rendering limits.
const (
	// MinThreshold and MaxThreshold bound the similarity threshold.
	MinThreshold = 0.0
	MaxThreshold = 1.0

	// MinDocs and MaxDocs bound the max context documents parameter.
	MinDocs = 1
	MaxDocs = 10

	// historyPreviewRunes caps each text field in the history rendering.
	historyPreviewRunes = 100
)

// Retriever produces ranked context chunks for a query.
// *retrieval.Engine satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, threshold float64, limit int) ([]knowledge.Result, error)
}

// Completer generates a reply for a built conversation.
// *llm.Completer satisfies it.
type Completer interface {
	Complete(ctx context.Context, msgs []prompt.Message) (string, error)
}

// Params are the runtime-adjustable retrieval parameters. Changes apply to
// subsequent queries only.
type Params struct {
	Threshold float64 // similarity threshold, [0.0, 1.0]
	MaxDocs   int     // max context documents, [1, 10]
}

// Validate checks both parameters against their domains.
func (p Params) Validate() error {
	var errs []error
	if p.Threshold < MinThreshold || p.Threshold > MaxThreshold {
		errs = append(errs, &ValidationError{Param: "similarity threshold", Value: p.Threshold, Min: MinThreshold, Max: MaxThreshold})
	}
	if p.MaxDocs < MinDocs || p.MaxDocs > MaxDocs {
		errs = append(errs, &ValidationError{Param: "max context docs", Value: float64(p.MaxDocs), Min: MinDocs, Max: MaxDocs})
	}
	return errors.Join(errs...)
}

// Turn is one completed exchange. Turns are appended in call order and
// never mutated; the history lives only as long as the session.
type Turn struct {
	User        string
	Assistant   string
	ContextDocs int // chunks actually retrieved for this turn
	At          time.Time
}

// State is the controller's processing state.
type State int

// Controller states. Exactly one query is in flight while Processing.
const (
	StateIdle State = iota
	StateProcessing
)

// Config carries the Controller's dependencies and initial parameters.
type Config struct {
	Retriever Retriever
	Completer Completer
	Params    Params

	// ContextBudget caps the assembled context block in characters.
	// Zero uses prompt.DefaultContextBudget. Unlike Params it is fixed for
	// the session lifetime.
	ContextBudget int

	Logger *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Completer == nil {
		return errors.New("completer is required")
	}
	return cfg.Params.Validate()
}

// Controller owns one session's mutable state: parameters, history, and
// the in-flight flag. It is not safe for concurrent use; the interactive
// loop is strictly one request at a time.
type Controller struct {
	id        uuid.UUID
	retriever Retriever
	completer Completer
	logger    *slog.Logger

	budget  int
	params  Params
	history []Turn
	state   State
}

// New creates a Controller for a single user session.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	budget := cfg.ContextBudget
	if budget <= 0 {
		budget = prompt.DefaultContextBudget
	}

	id := uuid.New()
	return &Controller{
		id:        id,
		retriever: cfg.Retriever,
		completer: cfg.Completer,
		logger:    logger.With("session_id", id),
		budget:    budget,
		params:    cfg.Params,
		state:     StateIdle,
	}, nil
}

// ID returns the session identifier.
func (c *Controller) ID() uuid.UUID { return c.id }

// State returns the current processing state.
func (c *Controller) State() State { return c.state }

// Params returns the current retrieval parameters.
func (c *Controller) Params() Params { return c.params }

// Handle runs one full query cycle and returns the generated reply.
//
// Retrieval-layer failures degrade gracefully: the cycle continues with an
// empty context and the reply is framed as general knowledge. A generation
// failure aborts the cycle with ErrGeneration and records nothing.
func (c *Controller) Handle(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		// No state transition; the caller re-prompts.
		return "", ErrEmptyQuery
	}
	if c.state != StateIdle {
		return "", ErrBusy
	}

	c.state = StateProcessing
	defer func() { c.state = StateIdle }()

	results, err := c.retriever.Retrieve(ctx, query, c.params.Threshold, c.params.MaxDocs)
	if err != nil {
		switch {
		case errors.Is(err, retrieval.ErrEmbedding):
			c.logger.Warn("query embedding failed, answering without context", "error", err)
		case errors.Is(err, retrieval.ErrStore):
			c.logger.Warn("similarity search unavailable, answering without context", "error", err)
		default:
			c.logger.Warn("retrieval failed, answering without context", "error", err)
		}
		results = nil
	}

	contextBlock := prompt.Assemble(results, c.budget)
	msgs := prompt.Build(query, contextBlock)

	reply, err := c.completer.Complete(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	c.history = append(c.history, Turn{
		User:        query,
		Assistant:   reply,
		ContextDocs: len(results),
		At:          time.Now(),
	})

	c.logger.Debug("completed query cycle", "context_docs", len(results), "turns", len(c.history))
	return reply, nil
}

// History returns a copy of all recorded turns in chronological order.
func (c *Controller) History() []Turn {
	out := make([]Turn, len(c.history))
	copy(out, c.history)
	return out
}

// FormatHistory renders the conversation history with each text field
// truncated to a short preview. Returns a placeholder line when no turns
// have been recorded yet.
func (c *Controller) FormatHistory() string {
	if len(c.history) == 0 {
		return "No conversation history yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation History (%d exchanges)\n", len(c.history))
	for i, turn := range c.history {
		fmt.Fprintf(&b, "\n%d. User: %s\n", i+1, preview(turn.User))
		fmt.Fprintf(&b, "   Assistant: %s\n", preview(turn.Assistant))
		fmt.Fprintf(&b, "   Context docs used: %d\n", turn.ContextDocs)
	}
	return b.String()
}

// preview truncates text to historyPreviewRunes, rune-safe.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= historyPreviewRunes {
		return text
	}
	return string(runes[:historyPreviewRunes]) + "..."
}

// AdjustParameters applies the provided values after validating each against
// its domain independently. A nil pointer leaves that parameter untouched.
// An out-of-domain value is rejected with a ValidationError while a valid
// value in the same call still takes effect.
func (c *Controller) AdjustParameters(threshold *float64, maxDocs *int) error {
	var errs []error

	if threshold != nil {
		if *threshold < MinThreshold || *threshold > MaxThreshold {
			errs = append(errs, &ValidationError{Param: "similarity threshold", Value: *threshold, Min: MinThreshold, Max: MaxThreshold})
		} else {
			c.params.Threshold = *threshold
			c.logger.Debug("similarity threshold updated", "threshold", *threshold)
		}
	}

	if maxDocs != nil {
		if *maxDocs < MinDocs || *maxDocs > MaxDocs {
			errs = append(errs, &ValidationError{Param: "max context docs", Value: float64(*maxDocs), Min: MinDocs, Max: MaxDocs})
		} else {
			c.params.MaxDocs = *maxDocs
			c.logger.Debug("max context docs updated", "max_docs", *maxDocs)
		}
	}

	return errors.Join(errs...)
}
