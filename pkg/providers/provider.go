package providers

import (
	"context"
	"fmt"
	"time"

	"transcriptor/pkg/models"
)

// MaxUploadMB is the hard per-request payload ceiling the remote backends
// impose.
const MaxUploadMB = 25.0

// Client is the uniform transcription interface over the backend variants.
type Client interface {
	// Transcribe sends the audio at path to the backend with a language
	// hint and returns the normalized result.
	Transcribe(ctx context.Context, audioPath, language string) (models.TranscriptionResult, error)
}

// Settings carries the credentials and defaults provider construction needs.
type Settings struct {
	OpenAIKey       string
	GroqKey         string
	WhisperBin      string
	DefaultLanguage string
	RequestTimeout  time.Duration
}

// ForModel builds the client serving a registry model.
func ForModel(m models.ModelDescriptor, s Settings) (Client, error) {
	switch m.Variant {
	case models.ProviderLocal:
		return NewLocalClient(s.WhisperBin, m.ID), nil
	case models.ProviderFastCloud:
		return NewGroqClient(s.GroqKey, m.ID, s.DefaultLanguage, s.RequestTimeout), nil
	case models.ProviderPremiumCloud:
		return NewOpenAIClient(s.OpenAIKey, m.ID, s.DefaultLanguage, s.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider variant %q", models.ErrConfiguration, m.Variant)
	}
}
