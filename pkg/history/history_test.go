package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptor/pkg/storage"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewLog(store)
}

func TestAddAssignsIDAndTimestamp(t *testing.T) {
	log := newTestLog(t)

	rec, err := log.Add(Record{Source: "a.mp3", Model: "whisper-1", CostUSD: 0.12})

	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	log := newTestLog(t)

	for i := 0; i < 5; i++ {
		_, err := log.Add(Record{Source: fmt.Sprintf("f%d.mp3", i), Model: "local-base"})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	records, err := log.List(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "f4.mp3", records[0].Source)
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].CreatedAt.After(records[i-1].CreatedAt))
	}

	all, err := log.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
