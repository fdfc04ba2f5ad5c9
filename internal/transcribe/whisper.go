//go:build whisper

package transcribe

import (
	"context"
	"fmt"

	"parley/internal/audio"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
)

// whisperTranscriber runs a ggml model locally with whisper.cpp.
type whisperTranscriber struct {
	modelPath string
	opts      Options
	logger    *logrus.Logger
}

func newWhisperTranscriber(modelPath string, opts Options, logger *logrus.Logger) (Transcriber, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("transcriber.model_path is not set")
	}
	return &whisperTranscriber{modelPath: modelPath, opts: opts, logger: logger}, nil
}

func (w *whisperTranscriber) Name() string { return "whisper" }

// Transcribe decodes the file, cuts it into chunk_length_s windows and runs
// them batch_size at a time.
func (w *whisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	samples, err := audio.Load(audioPath)
	if err != nil {
		return "", err
	}
	model, err := whisper.New(w.modelPath)
	if err != nil {
		return "", fmt.Errorf("load model: %w", err)
	}
	defer func() { _ = model.Close() }()

	chunks := SplitChunks(samples, audio.WhisperSampleRate, w.opts.ChunkLengthSec)
	w.logger.Debugf("whisper: %.1fs of audio, %d chunks", float64(len(samples))/audio.WhisperSampleRate, len(chunks))

	newContext := func() (segmentContext, error) {
		wctx, err := model.NewContext()
		if err != nil {
			return nil, err
		}
		if w.opts.Language != "" {
			if err := wctx.SetLanguage(w.opts.Language); err != nil {
				w.logger.Warnf("set language: %v", err)
			}
		}
		return whisperContext{wctx}, nil
	}
	return decodeChunks(ctx, chunks, w.opts.BatchSize, newContext, w.logger)
}

// whisperContext adapts a whisper.Context. Each one serves a single chunk:
// its segment cursor does not rewind on Process.
type whisperContext struct {
	ctx whisper.Context
}

func (c whisperContext) Process(samples []float32) error {
	return c.ctx.Process(samples, nil, nil, nil)
}

func (c whisperContext) NextSegment() (string, error) {
	seg, err := c.ctx.NextSegment()
	if err != nil {
		return "", err
	}
	return seg.Text, nil
}
