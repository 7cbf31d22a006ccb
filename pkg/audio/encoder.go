package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"transcriptor/pkg/logging"
	"transcriptor/pkg/models"
)

// Encoder materializes planned chunks as mono 16kHz low-bitrate mp3 files,
// running at most min(cores, 4) ffmpeg processes at a time.
type Encoder struct {
	ffmpeg        string
	cacheDir      string
	maxChunkMB    float64
	workers       int
	encodeTimeout time.Duration
	fullTimeout   time.Duration
	runner        Runner
	log           *log.Logger
}

type EncoderOptions struct {
	FFmpegBin     string
	CacheDir      string
	MaxChunkMB    float64
	Workers       int // 0 = min(cores, 4)
	EncodeTimeout time.Duration
	FullTimeout   time.Duration
	Runner        Runner
}

func NewEncoder(opts EncoderOptions) *Encoder {
	if opts.FFmpegBin == "" {
		opts.FFmpegBin = "ffmpeg"
	}
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(os.TempDir(), "transcriptor_chunks")
	}
	if opts.MaxChunkMB == 0 {
		opts.MaxChunkMB = 25
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
		if opts.Workers > 4 {
			opts.Workers = 4
		}
	}
	if opts.EncodeTimeout == 0 {
		opts.EncodeTimeout = 120 * time.Second
	}
	if opts.FullTimeout == 0 {
		opts.FullTimeout = 300 * time.Second
	}
	if opts.Runner == nil {
		opts.Runner = NewRunner()
	}
	return &Encoder{
		ffmpeg:        opts.FFmpegBin,
		cacheDir:      opts.CacheDir,
		maxChunkMB:    opts.MaxChunkMB,
		workers:       opts.Workers,
		encodeTimeout: opts.EncodeTimeout,
		fullTimeout:   opts.FullTimeout,
		runner:        opts.Runner,
		log:           logging.New("encoder"),
	}
}

// Encode transcodes every planned chunk in parallel and returns the
// materialized chunks ordered by index. A chunk whose path already points at
// the source needs no transcoding and passes through. Individual failures do
// not abort siblings; if nothing succeeds the whole file is recompressed
// once, and if even that exceeds the cap the unmodified source is returned
// so the provider call can reject it.
func (e *Encoder) Encode(ctx context.Context, src models.AudioSource, chunks []models.Chunk) ([]models.Chunk, error) {
	if len(chunks) == 1 && chunks[0].Path == src.Path {
		return chunks, nil
	}

	if err := os.MkdirAll(e.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create cache directory: %v", models.ErrEncoding, err)
	}
	e.sweepCache()

	jobs := make(chan models.Chunk, len(chunks))
	for _, c := range chunks {
		jobs <- c
	}
	close(jobs)

	var (
		mu   sync.Mutex
		done []models.Chunk
		wg   sync.WaitGroup
	)

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				encoded, err := e.encodeChunk(ctx, src, chunk)
				if err != nil {
					e.log.Error("chunk encode failed", "index", chunk.Index, "error", err)
					continue
				}
				mu.Lock()
				done = append(done, encoded)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(done) == 0 {
		e.log.Warn("all chunk encodes failed, recompressing whole file", "source", src.Path)
		return e.recompressWhole(ctx, src)
	}

	sort.Slice(done, func(i, j int) bool { return done[i].Index < done[j].Index })
	e.log.Info("chunks materialized", "count", len(done), "of", len(chunks))
	return done, nil
}

func (e *Encoder) encodeChunk(ctx context.Context, src models.AudioSource, chunk models.Chunk) (models.Chunk, error) {
	out := filepath.Join(e.cacheDir, fmt.Sprintf("%s_chunk_%03d.mp3", stem(src.Path), chunk.Index))

	// Name-keyed artifact cache; a prior run's valid output is reused.
	if info, err := os.Stat(out); err == nil && info.Size() > 0 {
		if mb(info.Size()) <= e.maxChunkMB {
			e.log.Debug("reusing cached chunk", "index", chunk.Index, "size", humanize.Bytes(uint64(info.Size())))
			chunk.Path = out
			chunk.SizeBytes = info.Size()
			return chunk, nil
		}
		_ = os.Remove(out)
	}

	ctx, cancel := context.WithTimeout(ctx, e.encodeTimeout)
	defer cancel()

	_, err := e.runner.Run(ctx, e.ffmpeg, []string{
		"-i", src.Path,
		"-ss", formatSeconds(chunk.StartSec),
		"-t", formatSeconds(chunk.DurationSec),
		"-c:a", "libmp3lame",
		"-q:a", "7",
		"-ac", "1",
		"-ar", "16000",
		"-threads", "0",
		"-y", out,
	})
	if err != nil {
		_ = os.Remove(out)
		return chunk, fmt.Errorf("%w: %v", models.ErrEncoding, err)
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(out)
		return chunk, fmt.Errorf("%w: empty output for chunk %d", models.ErrEncoding, chunk.Index)
	}
	if mb(info.Size()) > e.maxChunkMB {
		_ = os.Remove(out)
		return chunk, fmt.Errorf("%w: chunk %d is %s, over the %.0fMB cap",
			models.ErrEncoding, chunk.Index, humanize.Bytes(uint64(info.Size())), e.maxChunkMB)
	}

	e.log.Debug("chunk encoded", "index", chunk.Index, "size", humanize.Bytes(uint64(info.Size())))
	chunk.Path = out
	chunk.SizeBytes = info.Size()
	return chunk, nil
}

// recompressWhole is the last-resort path: one low-bitrate rendition of the
// entire file. If it still busts the cap, the original source is handed back
// and the caller's provider call is expected to fail validation.
func (e *Encoder) recompressWhole(ctx context.Context, src models.AudioSource) ([]models.Chunk, error) {
	passthrough := []models.Chunk{{
		Index:       0,
		StartSec:    0,
		DurationSec: float64(src.DurationSec),
		Path:        src.Path,
		SizeBytes:   src.SizeBytes,
	}}

	out := filepath.Join(e.cacheDir, stem(src.Path)+"_compressed.mp3")

	ctx, cancel := context.WithTimeout(ctx, e.fullTimeout)
	defer cancel()

	_, err := e.runner.Run(ctx, e.ffmpeg, []string{
		"-i", src.Path,
		"-c:a", "libmp3lame",
		"-q:a", "7",
		"-ac", "1",
		"-ar", "16000",
		"-threads", "0",
		"-y", out,
	})
	if err != nil {
		e.log.Error("whole-file recompression failed", "error", err)
		_ = os.Remove(out)
		return passthrough, nil
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 || mb(info.Size()) > e.maxChunkMB {
		if info != nil {
			e.log.Warn("recompression insufficient", "size", humanize.Bytes(uint64(info.Size())))
		}
		_ = os.Remove(out)
		return passthrough, nil
	}

	e.log.Info("whole-file recompression succeeded", "size", humanize.Bytes(uint64(info.Size())))
	return []models.Chunk{{
		Index:       0,
		StartSec:    0,
		DurationSec: float64(src.DurationSec),
		Path:        out,
		SizeBytes:   info.Size(),
	}}, nil
}

// sweepCache removes encoded artifacts older than a day. The cache is keyed
// by filename, not content, so age is the only staleness bound it has.
func (e *Encoder) sweepCache() {
	const maxAge = 24 * time.Hour

	for _, pattern := range []string{"*_chunk_*.mp3", "*_compressed.mp3"} {
		matches, err := filepath.Glob(filepath.Join(e.cacheDir, pattern))
		if err != nil {
			continue
		}
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if time.Since(info.ModTime()) >= maxAge {
				if err := os.Remove(path); err == nil {
					e.log.Debug("swept stale artifact", "path", filepath.Base(path))
				}
			}
		}
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

func mb(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}
