// Package transcribe turns a local audio file into text through a pluggable
// speech-to-text backend, and runs the download-then-transcribe flow.
package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"parley/internal/config"
	"parley/internal/fetch"

	"github.com/sirupsen/logrus"
)

// Transcriber converts an audio file into transcript text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Options is the static pipeline configuration shared by all backends.
type Options struct {
	Model          string
	ChunkLengthSec int
	BatchSize      int
	Language       string
}

// OptionsFromConfig extracts Options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:          cfg.Transcriber.Model,
		ChunkLengthSec: cfg.Transcriber.ChunkLengthSec,
		BatchSize:      cfg.Transcriber.BatchSize,
		Language:       strings.TrimSpace(cfg.Transcriber.Language),
	}
}

// TranscriberError wraps a backend failure.
type TranscriberError struct {
	Backend string
	Err     error
}

func (e *TranscriberError) Error() string {
	return fmt.Sprintf("transcriber %s: %v", e.Backend, e.Err)
}

func (e *TranscriberError) Unwrap() error { return e.Err }

// New returns the backend named by transcriber.backend.
func New(cfg *config.Config, logger *logrus.Logger) (Transcriber, error) {
	opts := OptionsFromConfig(cfg)
	timeout := time.Duration(float64(time.Second) * cfg.Transcriber.TimeoutSec)
	switch strings.ToLower(cfg.Transcriber.Backend) {
	case "whisper", "":
		return newWhisperTranscriber(os.ExpandEnv(cfg.Transcriber.ModelPath), opts, logger)
	case "sidecar":
		return NewSidecar(cfg.Transcriber.URL, opts, timeout), nil
	case "openai":
		return NewOpenAI(os.Getenv(cfg.Transcriber.APIKeyEnv), cfg.Transcriber.URL, opts), nil
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: whisper, sidecar, openai)", cfg.Transcriber.Backend)
	}
}

// Runner downloads an audio resource and transcribes it once.
type Runner struct {
	Client      *http.Client
	Transcriber Transcriber
	Logger      *logrus.Logger
	// OnFetched, if set, is called after a successful download.
	OnFetched func(fetch.Result)
}

// Fetch downloads url to dest.
func (r *Runner) Fetch(ctx context.Context, url, dest string) (fetch.Result, error) {
	r.Logger.Infof("downloading %s -> %s", url, dest)
	res, err := fetch.Resource(ctx, r.Client, url, dest)
	if err != nil {
		return fetch.Result{}, err
	}
	r.Logger.Infof("downloaded %d bytes to %s", res.Bytes, res.Path)
	if r.OnFetched != nil {
		r.OnFetched(res)
	}
	return res, nil
}

// Transcribe runs the backend on a local file and returns its text as the
// backend produced it.
func (r *Runner) Transcribe(ctx context.Context, path string) (string, error) {
	if info, err := os.Stat(path); err == nil {
		r.Logger.Debugf("transcribing %s (%d bytes) with %s", path, info.Size(), r.Transcriber.Name())
	}
	start := time.Now()
	text, err := r.Transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", &TranscriberError{Backend: r.Transcriber.Name(), Err: err}
	}
	r.Logger.Infof("transcribed %s with %s in %s", path, r.Transcriber.Name(), time.Since(start).Round(time.Millisecond))
	return text, nil
}

// Run fetches then transcribes. A failed fetch aborts before the backend is
// touched; a downloaded file is left in place either way.
func (r *Runner) Run(ctx context.Context, url, dest string) (string, error) {
	if _, err := r.Fetch(ctx, url, dest); err != nil {
		return "", err
	}
	return r.Transcribe(ctx, dest)
}
