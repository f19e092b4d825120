// Package llmtest provides a scripted Completer for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"
)

// ErrExhausted is returned once every scripted reply has been used.
var ErrExhausted = errors.New("llmtest: no scripted replies left")

// Reply is one scripted answer.
type Reply struct {
	Text string
	Err  error
}

// Call records one prompt sent to the completer.
type Call struct {
	Prompt       string
	SystemPrompt string
}

// Scripted returns its replies in order and records every call.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

// New returns a completer that answers with texts in order.
func New(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Failing returns a completer whose only reply is err.
func Failing(err error) *Scripted {
	return &Scripted{replies: []Reply{{Err: err}}}
}

// Then appends a reply.
func (s *Scripted) Then(r Reply) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	return s
}

// Complete implements llm.Completer.
func (s *Scripted) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Prompt: prompt, SystemPrompt: systemPrompt})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.replies) == 0 {
		return "", ErrExhausted
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.Text, r.Err
}

// Calls returns a copy of the recorded calls.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// LastPrompt returns the most recent prompt, or "".
func (s *Scripted) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return ""
	}
	return s.calls[len(s.calls)-1].Prompt
}
