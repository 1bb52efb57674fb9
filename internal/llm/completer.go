// Package llm adapts the conversation payload to the Genkit generation API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/askdoc/askdoc/internal/prompt"
)

// Completer generates chat replies through a Genkit-registered model.
type Completer struct {
	g      *genkit.Genkit
	model  string
	logger *slog.Logger
}

// New creates a Completer for the named model. The model name must be fully
// qualified, e.g. "googleai/gemini-2.5-flash".
func New(g *genkit.Genkit, model string, logger *slog.Logger) (*Completer, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if model == "" {
		return nil, errors.New("model name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Completer{g: g, model: model, logger: logger}, nil
}

// Complete sends the conversation to the model and returns its reply text.
// System messages become the model's system instruction; everything else is
// passed through as conversation history.
func (c *Completer) Complete(ctx context.Context, msgs []prompt.Message) (string, error) {
	if len(msgs) == 0 {
		return "", errors.New("no messages to send")
	}

	opts := []ai.GenerateOption{ai.WithModelName(c.model)}

	var conversation []*ai.Message
	for _, m := range msgs {
		switch m.Role {
		case prompt.RoleSystem:
			opts = append(opts, ai.WithSystem(m.Text))
		case prompt.RoleUser:
			conversation = append(conversation, ai.NewUserMessage(ai.NewTextPart(m.Text)))
		default:
			conversation = append(conversation, ai.NewModelMessage(ai.NewTextPart(m.Text)))
		}
	}
	opts = append(opts, ai.WithMessages(conversation...))

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", c.model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("model returned an empty response")
	}

	c.logger.Debug("generation completed", "model", c.model, "reply_chars", len(text))
	return text, nil
}
