// Package session keeps the ordered turn log of a chatbot conversation and
// drives rounds against a Responder.
package session

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Separator joins turns into the history string.
const Separator = "\n"

// Responder produces a reply from the conversation so far and a new input.
type Responder interface {
	Respond(ctx context.Context, history, input string) (string, error)
}

// ResponderError reports a failed round. The log is left as it was before
// the round started.
type ResponderError struct {
	Round int
	Err   error
}

func (e *ResponderError) Error() string {
	return fmt.Sprintf("responder failed on round %d: %v", e.Round, e.Err)
}

func (e *ResponderError) Unwrap() error { return e.Err }

// Session owns the conversation log. It is not safe for concurrent use.
type Session struct {
	id        string
	responder Responder
	logger    *logrus.Entry
	log       []string
}

// New starts a session with an empty log and a fresh ID. Log lines carry
// the ID in the "session" field.
func New(r Responder, logger *logrus.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		responder: r,
		logger:    logger.WithField("session", id),
		log:       []string{},
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// History returns the history string the next round would send.
func (s *Session) History() string {
	return strings.Join(s.log, Separator)
}

// Log returns a copy of the turns in insertion order.
func (s *Session) Log() []string {
	out := make([]string, len(s.log))
	copy(out, s.log)
	return out
}

// Rounds returns the number of completed rounds.
func (s *Session) Rounds() int {
	return len(s.log) / 2
}

// Submit runs one round. Input is passed through unvalidated and nothing is
// retried; on failure no turn is recorded.
func (s *Session) Submit(ctx context.Context, input string) (string, error) {
	round := s.Rounds() + 1
	history := s.History()
	s.logger.Debugf("round %d: history=%d bytes input=%q", round, len(history), input)

	response, err := s.responder.Respond(ctx, history, input)
	if err != nil {
		return "", &ResponderError{Round: round, Err: err}
	}
	s.log = append(s.log, input, response)
	s.logger.Infof("round %d: %q -> %q", round, input, response)
	return response, nil
}

// RunForever reads an input, submits it and writes the response, until read,
// Submit or the write fails or ctx is cancelled. Cancellation also ends a
// read that is still waiting for input. There is no exit command.
func (s *Session) RunForever(ctx context.Context, read func() (string, error), out io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		input, err := readContext(ctx, read)
		if err != nil {
			return err
		}
		response, err := s.Submit(ctx, input)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, response); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

type readResult struct {
	input string
	err   error
}

// readContext runs read until it returns or ctx is done. A read still
// blocked after cancellation is abandoned; its result is dropped.
func readContext(ctx context.Context, read func() (string, error)) (string, error) {
	done := make(chan readResult, 1)
	go func() {
		input, err := read()
		done <- readResult{input: input, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("read input: %w", r.err)
		}
		return r.input, nil
	}
}
