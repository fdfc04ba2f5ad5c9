package transcribe

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// OpenAI transcribes through an OpenAI-compatible audio/transcriptions API.
type OpenAI struct {
	client *openai.Client
	opts   Options
}

// NewOpenAI creates the backend. An empty baseURL targets api.openai.com.
func NewOpenAI(apiKey, baseURL string, opts Options) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), opts: opts}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) (string, error) {
	model := o.opts.Model
	if model == "" {
		model = openai.Whisper1
	}
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: audioPath,
		Language: o.opts.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
