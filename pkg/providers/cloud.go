package providers

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
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"transcriptor/pkg/logging"
	"transcriptor/pkg/models"
)

const (
	groqEndpoint   = "https://api.groq.com/openai/v1/audio/transcriptions"
	openAIEndpoint = "https://api.openai.com/v1/audio/transcriptions"
)

// cloudClient covers both metered HTTP backends; they speak the same
// multipart audio/transcriptions dialect.
type cloudClient struct {
	name            string
	endpoint        string
	apiKey          string
	model           string
	defaultLanguage string
	httpClient      *http.Client
	log             *log.Logger
}

// NewGroqClient builds the fast-cloud client. Registry ids carry a "groq-"
// prefix the backend does not know about.
func NewGroqClient(apiKey, model, defaultLanguage string, timeout time.Duration) Client {
	return newCloudClient("groq", groqEndpoint, apiKey,
		strings.TrimPrefix(model, "groq-"), defaultLanguage, timeout)
}

// NewOpenAIClient builds the premium-cloud client.
func NewOpenAIClient(apiKey, model, defaultLanguage string, timeout time.Duration) Client {
	return newCloudClient("openai", openAIEndpoint, apiKey, model, defaultLanguage, timeout)
}

func newCloudClient(name, endpoint, apiKey, model, defaultLanguage string, timeout time.Duration) *cloudClient {
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	if defaultLanguage == "" {
		defaultLanguage = "es"
	}
	return &cloudClient{
		name:            name,
		endpoint:        endpoint,
		apiKey:          apiKey,
		model:           model,
		defaultLanguage: defaultLanguage,
		httpClient:      &http.Client{Timeout: timeout},
		log:             logging.New(name),
	}
}

type verboseSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type verboseResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []verboseSegment `json:"segments"`
}

func (c *cloudClient) Transcribe(ctx context.Context, audioPath, language string) (models.TranscriptionResult, error) {
	var zero models.TranscriptionResult

	if c.apiKey == "" {
		return zero, fmt.Errorf("%s: %w: missing API key", c.name, models.ErrConfiguration)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return zero, fmt.Errorf("%s: %w: cannot open %s: %v", c.name, models.ErrValidation, audioPath, err)
	}
	if sizeMB := float64(info.Size()) / (1024 * 1024); sizeMB > MaxUploadMB {
		return zero, fmt.Errorf("%s: %w: payload is %s, limit is %.0fMB",
			c.name, models.ErrValidation, humanize.Bytes(uint64(info.Size())), MaxUploadMB)
	}

	if language == "" {
		language = c.defaultLanguage
	}

	body, contentType, err := c.buildForm(audioPath, language)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", c.name, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Debug("uploading audio", "path", filepath.Base(audioPath),
		"size", humanize.Bytes(uint64(info.Size())), "model", c.model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%s: %w: %v", c.name, models.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return zero, c.classify(resp.StatusCode, respBody)
	}

	var vr verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return zero, fmt.Errorf("%s: %w: undecodable response: %v", c.name, models.ErrTransient, err)
	}

	segments := make([]models.TranscriptionSegment, 0, len(vr.Segments))
	for _, s := range vr.Segments {
		segments = append(segments, models.TranscriptionSegment{Start: s.Start, End: s.End, Text: s.Text})
	}

	language = vr.Language
	if language == "" {
		language = c.defaultLanguage
	}

	c.log.Info("transcription received", "chars", len(vr.Text), "segments", len(segments))
	return models.NewTranscriptionResult(vr.Text, segments, language), nil
}

func (c *cloudClient) buildForm(audioPath, language string) (*bytes.Buffer, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to copy file to form: %w", err)
	}

	_ = writer.WriteField("model", c.model)
	_ = writer.WriteField("response_format", "verbose_json")
	_ = writer.WriteField("language", language)

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

func (c *cloudClient) classify(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w (http %d)", c.name, models.ErrAuth, status)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w (http %d)", c.name, models.ErrRateLimit, status)
	default:
		return fmt.Errorf("%s: %w: http %d: %s", c.name, models.ErrTransient, status, string(body))
	}
}
