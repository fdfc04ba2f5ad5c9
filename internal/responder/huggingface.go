package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultHFBaseURL is used when responder.base_url is empty.
const DefaultHFBaseURL = "https://api-inference.huggingface.co"

// HuggingFace calls the hosted Inference API for a seq2seq model.
type HuggingFace struct {
	baseURL string
	model   string
	token   string
	client  *http.Client
}

// NewHuggingFace creates the backend. timeout 0 means no client timeout.
func NewHuggingFace(baseURL, model, token string, timeout time.Duration) *HuggingFace {
	if baseURL == "" {
		baseURL = DefaultHFBaseURL
	}
	return &HuggingFace{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type hfRequest struct {
	Inputs string `json:"inputs"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

type hfError struct {
	Error string `json:"error"`
}

// Respond sends the history/input pair and returns the generated text.
func (h *HuggingFace) Respond(ctx context.Context, history, input string) (string, error) {
	body, err := json.Marshal(hfRequest{Inputs: pairText(history, input)})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s", h.baseURL, h.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		var he hfError
		if json.Unmarshal(raw, &he) == nil && he.Error != "" {
			return "", fmt.Errorf("huggingface http %d: %s", resp.StatusCode, he.Error)
		}
		return "", fmt.Errorf("huggingface http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	text, err := parseGeneration(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// parseGeneration accepts the list form the API returns for text2text
// pipelines and the bare object some deployments return.
func parseGeneration(raw []byte) (string, error) {
	var list []hfGeneration
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", errors.New("huggingface: empty generation list")
		}
		return list[0].GeneratedText, nil
	}
	var one hfGeneration
	if err := json.Unmarshal(raw, &one); err != nil {
		return "", fmt.Errorf("huggingface: unexpected response: %w", err)
	}
	return one.GeneratedText, nil
}
