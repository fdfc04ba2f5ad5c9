package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// SplitChunks cuts mono samples into windows of chunkSec seconds. The last
// window may be shorter. chunkSec <= 0 keeps the audio whole.
func SplitChunks(samples []float32, sampleRate, chunkSec int) [][]float32 {
	if len(samples) == 0 {
		return nil
	}
	size := sampleRate * chunkSec
	if size <= 0 || size >= len(samples) {
		return [][]float32{samples}
	}
	chunks := make([][]float32, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := min(start+size, len(samples))
		chunks = append(chunks, samples[start:end])
	}
	return chunks
}

// Batches groups chunks into runs of at most size. size <= 0 yields one batch.
func Batches(chunks [][]float32, size int) [][][]float32 {
	if len(chunks) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(chunks)
	}
	out := make([][][]float32, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		out = append(out, chunks[start:end])
	}
	return out
}

// segmentContext is one decoding pass: Process a chunk, then drain its
// segment texts until io.EOF.
type segmentContext interface {
	Process(samples []float32) error
	NextSegment() (string, error)
}

// decodeChunks runs every chunk through its own context, batch by batch, and
// joins the non-empty segment texts with single spaces in chunk order. A
// context's segment cursor is never reused for a second chunk.
func decodeChunks(ctx context.Context, chunks [][]float32, batchSize int, newContext func() (segmentContext, error), logger *logrus.Logger) (string, error) {
	var b strings.Builder
	for i, batch := range Batches(chunks, batchSize) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		logger.Debugf("batch %d: %d chunks", i, len(batch))
		for j, chunk := range batch {
			sc, err := newContext()
			if err != nil {
				return "", fmt.Errorf("batch %d chunk %d: %w", i, j, err)
			}
			if err := sc.Process(chunk); err != nil {
				return "", fmt.Errorf("batch %d chunk %d: %w", i, j, err)
			}
			if err := appendSegments(&b, sc); err != nil {
				return "", err
			}
		}
	}
	return b.String(), nil
}

func appendSegments(b *strings.Builder, sc segmentContext) error {
	for {
		text, err := sc.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
}
