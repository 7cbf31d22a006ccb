package models

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProviderVariant selects which transcription backend services a model.
type ProviderVariant string

const (
	ProviderLocal        ProviderVariant = "local"
	ProviderFastCloud    ProviderVariant = "fastcloud"
	ProviderPremiumCloud ProviderVariant = "premiumcloud"
)

// AudioSource describes a probed input file. Immutable after probing.
type AudioSource struct {
	Path        string `json:"path"`
	DurationSec int    `json:"duration_sec"`
	SizeBytes   int64  `json:"size_bytes"`
	Extension   string `json:"extension"`
}

// SizeMB returns the source size in megabytes.
func (s AudioSource) SizeMB() float64 {
	return float64(s.SizeBytes) / (1024 * 1024)
}

// Chunk is a time-bounded slice of a source, planned first and materialized
// by the encoder. Index defines ordering.
type Chunk struct {
	Index       int     `json:"index"`
	StartSec    float64 `json:"start_sec"`
	DurationSec float64 `json:"duration_sec"`
	Path        string  `json:"path,omitempty"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
}

// TranscriptionSegment is one time-stamped piece of recognized speech.
type TranscriptionSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionResult is the final product of a transcription: trimmed text,
// segments ordered by non-decreasing start, and the reported language.
type TranscriptionResult struct {
	Text     string                 `json:"text"`
	Segments []TranscriptionSegment `json:"segments"`
	Language string                 `json:"language"`
}

// NewTranscriptionResult trims the text and normalizes segment order.
func NewTranscriptionResult(text string, segments []TranscriptionSegment, language string) TranscriptionResult {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return TranscriptionResult{
		Text:     strings.TrimSpace(text),
		Segments: segments,
		Language: language,
	}
}

// ModelDescriptor is a static registry entry for a transcription model.
type ModelDescriptor struct {
	ID            string          `json:"id"`
	Variant       ProviderVariant `json:"variant"`
	CostPerMinute float64         `json:"cost_per_minute"`
}

// IsFree reports whether the model bills nothing.
func (m ModelDescriptor) IsFree() bool { return m.CostPerMinute == 0 }

var registry = map[string]ModelDescriptor{
	"whisper-1":                       {ID: "whisper-1", Variant: ProviderPremiumCloud, CostPerMinute: 0.006},
	"groq-whisper-large-v3":           {ID: "groq-whisper-large-v3", Variant: ProviderFastCloud, CostPerMinute: 0.00011},
	"groq-distil-whisper-large-v3-en": {ID: "groq-distil-whisper-large-v3-en", Variant: ProviderFastCloud, CostPerMinute: 0.00002},
	"local-tiny":                      {ID: "local-tiny", Variant: ProviderLocal},
	"local-base":                      {ID: "local-base", Variant: ProviderLocal},
	"local-small":                     {ID: "local-small", Variant: ProviderLocal},
	"local-medium":                    {ID: "local-medium", Variant: ProviderLocal},
	"local-large":                     {ID: "local-large", Variant: ProviderLocal},
}

// LookupModel resolves a model id against the static registry.
func LookupModel(id string) (ModelDescriptor, bool) {
	m, ok := registry[id]
	return m, ok
}

// AllModels lists every registered model, paid models first by ascending
// per-minute price, free models last.
func AllModels() []ModelDescriptor {
	out := make([]ModelDescriptor, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].CostPerMinute, out[j].CostPerMinute
		if (ci == 0) != (cj == 0) {
			return cj == 0
		}
		if ci != cj {
			return ci < cj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CalculateCost prices a transcription: per-minute rate with a one minute
// billing floor.
func CalculateCost(durationSec int, model ModelDescriptor) float64 {
	minutes := float64(durationSec) / 60.0
	if minutes < 1 {
		minutes = 1
	}
	return minutes * model.CostPerMinute
}

// JobStatus tracks a transcription job through the pipeline.
type JobStatus string

const (
	StatusPending      JobStatus = "pending"
	StatusProbing      JobStatus = "probing"
	StatusEncoding     JobStatus = "encoding"
	StatusTranscribing JobStatus = "transcribing"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
)

// Job is one transcription request tracked by the API.
type Job struct {
	ID        string               `json:"id"`
	Source    string               `json:"source"`
	Model     string               `json:"model"`
	Status    JobStatus            `json:"status"`
	Result    *TranscriptionResult `json:"result,omitempty"`
	CostUSD   float64              `json:"cost_usd"`
	Error     string               `json:"error,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// NewJob creates a pending job for a source file and model.
func NewJob(source, model string) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Source:    filepath.Base(source),
		Model:     model,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}
