package output

import (
	"fmt"
	"os"
	"strings"

	"transcriptor/pkg/models"
)

// SRT renders a transcription as sequential subtitle cue blocks. Without
// segments a single ten-second cue carries the whole text.
func SRT(result models.TranscriptionResult) string {
	if len(result.Segments) == 0 {
		return "1\n00:00:00,000 --> 00:00:10,000\n" + result.Text + "\n"
	}

	var b strings.Builder
	index := 1
	for _, seg := range result.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		end := seg.End
		if end <= seg.Start {
			end = seg.Start + 1
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, Timestamp(seg.Start), Timestamp(end), text)
		index++
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Timestamp formats seconds as an SRT cue time, HH:MM:SS,mmm.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	millis := int((seconds - float64(total)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// WriteSRT writes the subtitle rendition of a result to path.
func WriteSRT(result models.TranscriptionResult, path string) error {
	if err := os.WriteFile(path, []byte(SRT(result)), 0o644); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	return nil
}

// WriteText writes the plain transcript to path.
func WriteText(result models.TranscriptionResult, path string) error {
	if err := os.WriteFile(path, []byte(result.Text+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
