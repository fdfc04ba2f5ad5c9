package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultSidecarURL is used when transcriber.url is empty.
const DefaultSidecarURL = "http://localhost:8387"

// Sidecar posts audio to an HTTP speech-to-text service that hosts the
// pipeline model (for example a transformers ASR pipeline behind a small
// web server).
type Sidecar struct {
	url    string
	opts   Options
	client *http.Client
}

// NewSidecar creates a sidecar backend. timeout 0 means no client timeout.
func NewSidecar(url string, opts Options, timeout time.Duration) *Sidecar {
	if url == "" {
		url = DefaultSidecarURL
	}
	return &Sidecar{
		url:    strings.TrimRight(url, "/"),
		opts:   opts,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Sidecar) Name() string { return "sidecar" }

type sidecarResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the file with the static pipeline options.
func (s *Sidecar) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	fields := map[string]string{
		"model":          s.opts.Model,
		"chunk_length_s": strconv.Itoa(s.opts.ChunkLengthSec),
		"batch_size":     strconv.Itoa(s.opts.BatchSize),
	}
	if s.opts.Language != "" {
		fields["language"] = s.opts.Language
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sidecar request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("sidecar http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode sidecar response: %w", err)
	}
	return out.Text, nil
}
