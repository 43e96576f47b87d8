// Package transcribe defines the voice-transcription collaborator.
package transcribe

import (
	"context"
	"errors"
	"strings"
)

var ErrNotConfigured = errors.New("transcription service not configured")

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

// NormalizeLanguage maps legacy language codes to their current forms.
func NormalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "iw" {
		return "he"
	}
	return language
}

// DevTranscriber rejects every request; wired when no provider is set up.
type DevTranscriber struct{}

func NewDevTranscriber() *DevTranscriber {
	return &DevTranscriber{}
}

func (d *DevTranscriber) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	return "", ErrNotConfigured
}
