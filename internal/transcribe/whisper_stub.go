//go:build !whisper

package transcribe

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

var errNoWhisper = errors.New("whisper backend not compiled in; rebuild with '-tags whisper' or set transcriber.backend to sidecar or openai")

type whisperTranscriber struct{}

func newWhisperTranscriber(string, Options, *logrus.Logger) (Transcriber, error) {
	return whisperTranscriber{}, nil
}

func (whisperTranscriber) Name() string { return "whisper" }

func (whisperTranscriber) Transcribe(context.Context, string) (string, error) {
	return "", errNoWhisper
}
