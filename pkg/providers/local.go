package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"transcriptor/pkg/logging"
	"transcriptor/pkg/models"
)

// localClient runs the offline whisper CLI. Free, no payload ceiling, may be
// slow and memory-heavy.
type localClient struct {
	bin       string
	modelSize string
	log       *log.Logger
}

// NewLocalClient builds the offline client. Registry ids carry a "local-"
// prefix; the CLI wants the bare model size.
func NewLocalClient(bin, model string) Client {
	if bin == "" {
		bin = "whisper"
	}
	size := strings.TrimPrefix(model, "local-")
	if size == "" {
		size = "base"
	}
	return &localClient{bin: bin, modelSize: size, log: logging.New("local")}
}

type whisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []verboseSegment `json:"segments"`
}

func (c *localClient) Transcribe(ctx context.Context, audioPath, language string) (models.TranscriptionResult, error) {
	var zero models.TranscriptionResult

	if _, err := exec.LookPath(c.bin); err != nil {
		return zero, fmt.Errorf("local: %w: %s not found in PATH", models.ErrConfiguration, c.bin)
	}

	tmpDir, err := os.MkdirTemp("", "whisper_out_*")
	if err != nil {
		return zero, fmt.Errorf("local: failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	args := []string{
		audioPath,
		"--model", c.modelSize,
		"--output_dir", tmpDir,
		"--output_format", "json",
		"--fp16", "False",
	}
	if language != "" {
		args = append(args, "--language", language)
	}

	c.log.Info("running whisper", "model", c.modelSize, "path", filepath.Base(audioPath))

	cmd := exec.CommandContext(ctx, c.bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return zero, fmt.Errorf("local: whisper failed: %w\noutput: %s", err, string(output))
	}

	base := filepath.Base(audioPath)
	jsonFile := filepath.Join(tmpDir, strings.TrimSuffix(base, filepath.Ext(base))+".json")

	raw, err := os.ReadFile(jsonFile)
	if err != nil {
		return zero, fmt.Errorf("local: failed to read whisper output: %w", err)
	}

	var wo whisperOutput
	if err := json.Unmarshal(raw, &wo); err != nil {
		return zero, fmt.Errorf("local: undecodable whisper output: %w", err)
	}

	segments := make([]models.TranscriptionSegment, 0, len(wo.Segments))
	for _, s := range wo.Segments {
		segments = append(segments, models.TranscriptionSegment{Start: s.Start, End: s.End, Text: s.Text})
	}

	lang := wo.Language
	if lang == "" {
		lang = language
	}

	c.log.Info("local transcription finished", "chars", len(wo.Text), "segments", len(segments))
	return models.NewTranscriptionResult(wo.Text, segments, lang), nil
}
