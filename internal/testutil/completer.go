package testutil

import (
	"context"

	"github.com/askdoc/askdoc/internal/prompt"
)

// MockCompleter records the messages it is handed and replies with Reply.
type MockCompleter struct {
	Reply string
	Err   error

	Calls    int
	LastMsgs []prompt.Message
}

func (m *MockCompleter) Complete(ctx context.Context, msgs []prompt.Message) (string, error) {
	m.Calls++
	m.LastMsgs = msgs
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
