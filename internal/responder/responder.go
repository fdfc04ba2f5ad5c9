// Package responder provides the model backends a chat session talks to.
//
// Backends:
//   - huggingface: Inference API text2text generation (default, blenderbot)
//   - openai: any OpenAI-compatible chat completions endpoint
//   - exec: a local command, e.g. a Python transformers script
package responder

import (
	"fmt"
	"os"
	"strings"
	"time"

	"parley/internal/config"
	"parley/internal/session"

	"github.com/sirupsen/logrus"
)

// New returns the backend named by responder.backend.
func New(cfg *config.Config, logger *logrus.Logger) (session.Responder, error) {
	rc := cfg.Responder
	timeout := time.Duration(float64(time.Second) * rc.TimeoutSec)
	switch strings.ToLower(rc.Backend) {
	case "huggingface", "hf", "":
		return NewHuggingFace(rc.BaseURL, rc.Model, os.Getenv(rc.APIKeyEnv), timeout), nil
	case "openai":
		return NewOpenAI(os.Getenv(rc.APIKeyEnv), rc.BaseURL, rc.Model, rc.SystemPrompt), nil
	case "exec":
		e, err := NewExec(rc.Command, rc.Args, timeout, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("responder: unknown backend %q (supported: huggingface, openai, exec)", rc.Backend)
	}
}

// pairText is the single text the model sees for a (history, input) pair.
func pairText(history, input string) string {
	if history == "" {
		return input
	}
	return history + session.Separator + input
}
