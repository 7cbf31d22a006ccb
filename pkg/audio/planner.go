package audio

import (
	"transcriptor/pkg/models"
)

// Planner parameters. Chunks aim at TargetChunkMB so VBR spikes stay under
// the MaxChunkMB provider ceiling.
type PlannerParams struct {
	TargetChunkMB float64
	MaxChunkMB    float64
	OverlapSec    int
	BitrateKbps   int
}

func DefaultPlannerParams() PlannerParams {
	return PlannerParams{TargetChunkMB: 20, MaxChunkMB: 25, OverlapSec: 5, BitrateKbps: 64}
}

const (
	// A file under the cap and shorter than 25 minutes goes out whole.
	noSplitDurationSec = 1500

	minChunkDurationSec = 240
	maxChunkDurationSec = 900
)

// Plan decides whether a source needs splitting and computes overlapped chunk
// boundaries. The returned chunks are ordered by index; chunk 0 always starts
// at 0 and consecutive starts are chunkDuration−overlap apart. The second
// return value is the chunk duration used, which the stitcher needs to undo
// the offsets.
func Plan(src models.AudioSource, p PlannerParams) ([]models.Chunk, int) {
	if src.SizeMB() <= p.MaxChunkMB && src.DurationSec < noSplitDurationSec {
		return []models.Chunk{{
			Index:       0,
			StartSec:    0,
			DurationSec: float64(src.DurationSec),
			Path:        src.Path,
			SizeBytes:   src.SizeBytes,
		}}, src.DurationSec
	}

	chunkDuration := chunkDurationFor(src, p)

	duration := float64(src.DurationSec)
	overlap := float64(p.OverlapSec)
	step := float64(chunkDuration) - overlap

	var chunks []models.Chunk
	for i := 0; float64(i)*step < duration; i++ {
		start := float64(i) * step
		length := float64(chunkDuration)
		if remaining := duration - start + overlap; remaining < length {
			length = remaining
		}
		chunks = append(chunks, models.Chunk{
			Index:       i,
			StartSec:    start,
			DurationSec: length,
		})
	}

	return chunks, chunkDuration
}

func chunkDurationFor(src models.AudioSource, p PlannerParams) int {
	minutes := float64(src.DurationSec) / 60.0
	if minutes <= 0 {
		minutes = 1
	}
	mbPerMinute := src.SizeMB() / minutes

	bitrateRatio := float64(p.BitrateKbps) / 64.0
	chunkDuration := int(p.TargetChunkMB / bitrateRatio / mbPerMinute * 60)

	if chunkDuration > maxChunkDurationSec {
		chunkDuration = maxChunkDurationSec
	}
	if chunkDuration < minChunkDurationSec {
		chunkDuration = minChunkDurationSec
	}
	return chunkDuration
}
