package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptor/pkg/models"
)

func TestNewLocalClientStripsModelPrefix(t *testing.T) {
	client := NewLocalClient("", "local-medium").(*localClient)
	assert.Equal(t, "medium", client.modelSize)
	assert.Equal(t, "whisper", client.bin)

	fallback := NewLocalClient("whisper", "local-").(*localClient)
	assert.Equal(t, "base", fallback.modelSize)
}

func TestLocalMissingBinaryIsConfigurationError(t *testing.T) {
	client := NewLocalClient("definitely-not-a-real-binary-xyz", "local-base")

	_, err := client.Transcribe(context.Background(), "/tmp/a.mp3", "es")

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
