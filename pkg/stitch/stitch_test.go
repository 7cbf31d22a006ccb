package stitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptor/pkg/models"
)

func seg(start, end float64, text string) models.TranscriptionSegment {
	return models.TranscriptionSegment{Start: start, End: end, Text: text}
}

func TestMergeSingleChunkIsIdentity(t *testing.T) {
	in := models.TranscriptionResult{
		Text:     "hola mundo",
		Segments: []models.TranscriptionSegment{seg(0, 2, "hola mundo")},
		Language: "es",
	}

	out := Merge([]models.TranscriptionResult{in}, 900, 5, DefaultOverlapThreshold)

	assert.Equal(t, in, out)
}

func TestMergeDropsOverlapDuplicatesAndShiftsTimestamps(t *testing.T) {
	first := models.TranscriptionResult{
		Text:     "primera parte",
		Segments: []models.TranscriptionSegment{seg(0, 890, "primera parte")},
		Language: "es",
	}
	second := models.TranscriptionResult{
		Text: "cola repetida y luego texto nuevo",
		Segments: []models.TranscriptionSegment{
			seg(1.0, 1.8, "cola repetida"),
			seg(2.5, 9.0, "texto nuevo"),
		},
		Language: "es",
	}

	out := Merge([]models.TranscriptionResult{first, second}, 900, 5, 2.0)

	require.Len(t, out.Segments, 2, "the sub-threshold segment of chunk 2 is dropped")

	shift := float64(900 - 5)
	assert.Equal(t, 0.0, out.Segments[0].Start)
	assert.Equal(t, 2.5+shift, out.Segments[1].Start)
	assert.Equal(t, 9.0+shift, out.Segments[1].End)
}

func TestMergeTextJoining(t *testing.T) {
	results := []models.TranscriptionResult{
		{Text: "Una frase"},
		{Text: ". Y otra"},
		{Text: "más texto"},
	}

	out := Merge(results, 900, 5, DefaultOverlapThreshold)

	// A chunk starting with a sentence terminator joins without a space.
	assert.Equal(t, "Una frase. Y otra más texto", out.Text)
}

func TestMergeSkipsEmptyChunkText(t *testing.T) {
	results := []models.TranscriptionResult{
		{Text: "inicio"},
		{Text: "   "},
		{Text: "final"},
	}

	out := Merge(results, 600, 5, DefaultOverlapThreshold)

	assert.Equal(t, "inicio final", out.Text)
}

func TestMergeSortsSegmentsDefensively(t *testing.T) {
	first := models.TranscriptionResult{
		Segments: []models.TranscriptionSegment{
			seg(50, 60, "tarde"),
			seg(10, 20, "temprano"),
		},
	}
	second := models.TranscriptionResult{
		Segments: []models.TranscriptionSegment{seg(3, 4, "siguiente")},
	}

	out := Merge([]models.TranscriptionResult{first, second}, 300, 5, 2.0)

	require.Len(t, out.Segments, 3)
	for i := 1; i < len(out.Segments); i++ {
		assert.LessOrEqual(t, out.Segments[i-1].Start, out.Segments[i].Start)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	out := Merge(nil, 900, 5, DefaultOverlapThreshold)
	assert.Empty(t, out.Text)
	assert.Empty(t, out.Segments)
}

func TestMergeKeepsFirstReportedLanguage(t *testing.T) {
	results := []models.TranscriptionResult{
		{Text: "uno", Language: "es"},
		{Text: "dos", Language: "en"},
	}

	out := Merge(results, 900, 5, DefaultOverlapThreshold)

	assert.Equal(t, "es", out.Language)
}
