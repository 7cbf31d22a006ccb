package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptor/pkg/models"
)

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "00:01:05,500", Timestamp(65.5))
	assert.Equal(t, "00:01:07,250", Timestamp(67.25))
	assert.Equal(t, "00:00:00,000", Timestamp(0))
	assert.Equal(t, "01:00:01,500", Timestamp(3601.5))
	assert.Equal(t, "00:00:00,000", Timestamp(-3))
}

func TestSRTRendersCueBlocks(t *testing.T) {
	result := models.TranscriptionResult{
		Text: "hi there",
		Segments: []models.TranscriptionSegment{
			{Start: 65.5, End: 67.25, Text: "hi"},
			{Start: 67.25, End: 69, Text: "there"},
		},
	}

	srt := SRT(result)

	assert.Contains(t, srt, "1\n00:01:05,500 --> 00:01:07,250\nhi\n")
	assert.Contains(t, srt, "2\n00:01:07,250 --> 00:01:09,000\nthere\n")
}

func TestSRTSkipsEmptySegmentsAndRenumbers(t *testing.T) {
	result := models.TranscriptionResult{
		Segments: []models.TranscriptionSegment{
			{Start: 0, End: 1, Text: "uno"},
			{Start: 1, End: 2, Text: "   "},
			{Start: 2, End: 3, Text: "dos"},
		},
	}

	srt := SRT(result)

	assert.NotContains(t, srt, "3\n")
	assert.Contains(t, srt, "2\n00:00:02,000 --> 00:00:03,000\ndos")
}

func TestSRTWithoutSegmentsUsesSingleCue(t *testing.T) {
	result := models.TranscriptionResult{Text: "todo el texto"}

	srt := SRT(result)

	assert.True(t, strings.HasPrefix(srt, "1\n00:00:00,000 --> 00:00:10,000\ntodo el texto"))
}

func TestSRTFixesNonPositiveCueDuration(t *testing.T) {
	result := models.TranscriptionResult{
		Segments: []models.TranscriptionSegment{{Start: 5, End: 5, Text: "x"}},
	}

	assert.Contains(t, SRT(result), "00:00:05,000 --> 00:00:06,000")
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	result := models.TranscriptionResult{
		Text:     "transcripción",
		Segments: []models.TranscriptionSegment{{Start: 0, End: 1, Text: "transcripción"}},
	}

	txtPath := filepath.Join(dir, "out.txt")
	require.NoError(t, WriteText(result, txtPath))
	data, err := os.ReadFile(txtPath)
	require.NoError(t, err)
	assert.Equal(t, "transcripción\n", string(data))

	srtPath := filepath.Join(dir, "out.srt")
	require.NoError(t, WriteSRT(result, srtPath))
	data, err = os.ReadFile(srtPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-->")
}
