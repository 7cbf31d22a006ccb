package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"transcriptor/pkg/audio"
	"transcriptor/pkg/budget"
	"transcriptor/pkg/config"
	"transcriptor/pkg/logging"
	"transcriptor/pkg/models"
	"transcriptor/pkg/providers"
	"transcriptor/pkg/stitch"
)

// ClientFactory builds the provider client for a model. Tests substitute a
// fake.
type ClientFactory func(models.ModelDescriptor, providers.Settings) (providers.Client, error)

// ProgressFunc receives status transitions while a transcription runs.
type ProgressFunc func(models.JobStatus)

// Outcome bundles a finished transcription with its price. The caller
// consumes the budget on success.
type Outcome struct {
	Result      models.TranscriptionResult
	CostUSD     float64
	DurationSec int
}

// Engine orchestrates probe → plan → encode → provider → stitch for one
// source file. Chunk encoding runs in parallel; provider calls are
// deliberately sequential to respect remote rate limits and keep timestamp
// accumulation trivial.
type Engine struct {
	probe    *audio.Probe
	encoder  *audio.Encoder
	planner  audio.PlannerParams
	ledger   *budget.Ledger
	settings providers.Settings
	clients  ClientFactory
	log      *log.Logger
}

func NewEngine(cfg *config.Config, ledger *budget.Ledger, runner audio.Runner) *Engine {
	return &Engine{
		probe: audio.NewProbe(cfg.Audio.FFprobeBin, cfg.Audio.ProbeTimeout, runner),
		encoder: audio.NewEncoder(audio.EncoderOptions{
			FFmpegBin:     cfg.Audio.FFmpegBin,
			CacheDir:      cfg.CacheDir,
			MaxChunkMB:    cfg.Audio.MaxChunkMB,
			Workers:       cfg.Audio.EncodeWorkers,
			EncodeTimeout: cfg.Audio.EncodeTimeout,
			FullTimeout:   cfg.Audio.FullEncTimeout,
			Runner:        runner,
		}),
		planner: audio.PlannerParams{
			TargetChunkMB: cfg.Audio.TargetChunkMB,
			MaxChunkMB:    cfg.Audio.MaxChunkMB,
			OverlapSec:    cfg.Audio.OverlapSec,
			BitrateKbps:   cfg.Audio.BitrateKbps,
		},
		ledger: ledger,
		settings: providers.Settings{
			OpenAIKey:       cfg.Provider.OpenAIKey,
			GroqKey:         cfg.Provider.GroqKey,
			WhisperBin:      cfg.Audio.WhisperBin,
			DefaultLanguage: cfg.Provider.DefaultLanguage,
			RequestTimeout:  cfg.Provider.RequestTimeout,
		},
		clients: providers.ForModel,
		log:     logging.New("engine"),
	}
}

// SetClientFactory replaces provider construction. Tests use it.
func (e *Engine) SetClientFactory(f ClientFactory) { e.clients = f }

// Transcribe runs the full pipeline for one source and model. progress may
// be nil. The estimated cost is gated against the budget ledger before any
// provider is called; consuming it afterwards is the caller's job.
func (e *Engine) Transcribe(ctx context.Context, path, modelID string, progress ProgressFunc) (Outcome, error) {
	report := func(s models.JobStatus) {
		if progress != nil {
			progress(s)
		}
	}

	size, err := audio.ValidateSource(path)
	if err != nil {
		return Outcome{}, err
	}

	model, ok := models.LookupModel(modelID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown model %q", models.ErrValidation, modelID)
	}

	client, err := e.clients(model, e.settings)
	if err != nil {
		return Outcome{}, err
	}

	report(models.StatusProbing)
	duration, err := e.probe.Duration(ctx, path)
	if err != nil {
		return Outcome{}, err
	}

	src := models.AudioSource{
		Path:        path,
		DurationSec: duration,
		SizeBytes:   size,
		Extension:   strings.ToLower(filepath.Ext(path)),
	}
	cost := models.CalculateCost(duration, model)
	language := e.settings.DefaultLanguage

	e.log.Info("transcription starting", "source", filepath.Base(path),
		"model", modelID, "duration_sec", duration, "cost_usd", cost)

	// Local models skip chunking entirely; no payload ceiling applies.
	if model.Variant == models.ProviderLocal {
		report(models.StatusTranscribing)
		result, err := client.Transcribe(ctx, path, language)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: result, CostUSD: cost, DurationSec: duration}, nil
	}

	if !e.ledger.CheckAvailable(cost) {
		return Outcome{}, fmt.Errorf("%w: %.4f USD needed, %.4f USD remaining",
			models.ErrBudgetExceeded, cost, e.ledger.Remaining())
	}

	planned, chunkDuration := audio.Plan(src, e.planner)

	report(models.StatusEncoding)
	chunks, err := e.encoder.Encode(ctx, src, planned)
	if err != nil {
		return Outcome{}, err
	}

	report(models.StatusTranscribing)

	if len(chunks) == 1 {
		result, err := client.Transcribe(ctx, chunks[0].Path, language)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: result, CostUSD: cost, DurationSec: duration}, nil
	}

	// Sequential on purpose. No partial-success mode: one failed chunk
	// aborts the request.
	results := make([]models.TranscriptionResult, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		e.log.Info("transcribing chunk", "index", chunk.Index, "of", len(chunks))
		result, err := client.Transcribe(ctx, chunk.Path, language)
		if err != nil {
			return Outcome{}, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		results = append(results, result)
	}

	merged := stitch.Merge(results, chunkDuration, e.planner.OverlapSec, stitch.DefaultOverlapThreshold)
	e.log.Info("transcription complete", "chars", len(merged.Text), "segments", len(merged.Segments))

	return Outcome{Result: merged, CostUSD: cost, DurationSec: duration}, nil
}
