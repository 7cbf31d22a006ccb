package stitch

import (
	"sort"
	"strings"

	"transcriptor/pkg/models"
)

// DefaultOverlapThreshold marks the window at the head of a non-first chunk
// whose segments are presumed re-recognitions of the previous chunk's tail.
// It is a heuristic: a genuinely short utterance inside the first two seconds
// of a chunk is indistinguishable from a duplicate and gets dropped too.
const DefaultOverlapThreshold = 2.0

// Merge reassembles ordered per-chunk results into one transcript.
// chunkDurationSec and overlapSec must match the values the planner used, so
// per-chunk timestamps can be shifted onto the source timeline. Single-chunk
// input is returned unchanged.
func Merge(results []models.TranscriptionResult, chunkDurationSec, overlapSec int, overlapThreshold float64) models.TranscriptionResult {
	if len(results) == 0 {
		return models.TranscriptionResult{}
	}
	if len(results) == 1 {
		return results[0]
	}

	step := float64(chunkDurationSec - overlapSec)

	var (
		text     strings.Builder
		segments []models.TranscriptionSegment
		language string
	)

	for i, result := range results {
		if language == "" {
			language = result.Language
		}

		offset := float64(i) * step

		for _, seg := range result.Segments {
			// Head of a later chunk re-recognizes the previous tail.
			if i > 0 && seg.Start < overlapThreshold {
				continue
			}
			seg.Start += offset
			seg.End += offset
			segments = append(segments, seg)
		}

		chunkText := strings.TrimSpace(result.Text)
		if chunkText == "" {
			continue
		}
		if text.Len() > 0 && !startsWithTerminator(chunkText) {
			text.WriteByte(' ')
		}
		text.WriteString(chunkText)
	}

	// Defensive: guards against out-of-order completion upstream.
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	return models.TranscriptionResult{
		Text:     text.String(),
		Segments: segments,
		Language: language,
	}
}

func startsWithTerminator(s string) bool {
	switch s[0] {
	case '.', '!', '?':
		return true
	}
	return false
}
