package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptor/pkg/budget"
	"transcriptor/pkg/config"
	"transcriptor/pkg/history"
	"transcriptor/pkg/models"
	"transcriptor/pkg/providers"
	"transcriptor/pkg/storage"
	"transcriptor/pkg/transcribe"
)

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, _ string, args []string) (string, error) {
	for i, a := range args {
		if a == "-show_entries" {
			return "600.0", nil
		}
		if a == "-y" && i+1 < len(args) {
			return "", os.WriteFile(args[i+1], make([]byte, 64), 0o644)
		}
	}
	return "", nil
}

type stubClient struct{}

func (stubClient) Transcribe(_ context.Context, _, _ string) (models.TranscriptionResult, error) {
	return models.TranscriptionResult{
		Text:     "hola mundo",
		Segments: []models.TranscriptionSegment{{Start: 0, End: 2, Text: "hola mundo"}},
		Language: "es",
	}, nil
}

type apiFixture struct {
	router *mux.Router
	ledger *budget.Ledger
	hist   *history.Log
}

func newFixture(t *testing.T) *apiFixture {
	t.Helper()

	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		Audio: config.AudioConfig{
			FFmpegBin: "true", FFprobeBin: "true", WhisperBin: "true",
			TargetChunkMB: 20, MaxChunkMB: 25, OverlapSec: 5, BitrateKbps: 64,
			ProbeTimeout: 5 * time.Second, EncodeTimeout: 5 * time.Second, FullEncTimeout: 5 * time.Second,
		},
		Provider: config.ProviderConfig{DefaultLanguage: "es", RequestTimeout: time.Minute},
		CacheDir: t.TempDir(),
	}

	ledger := budget.NewLedger(store, 2.0)
	hist := history.NewLog(store)
	jobs := storage.NewJobStore()

	engine := transcribe.NewEngine(cfg, ledger, stubRunner{})
	engine.SetClientFactory(func(models.ModelDescriptor, providers.Settings) (providers.Client, error) {
		return stubClient{}, nil
	})

	handlers := NewHandlers(context.Background(), engine, jobs, ledger, hist, filepath.Join(t.TempDir(), "uploads"))

	router := mux.NewRouter()
	router.HandleFunc("/transcriptions", handlers.SubmitHandler).Methods("POST")
	router.HandleFunc("/transcriptions/{id}", handlers.GetJobHandler).Methods("GET")
	router.HandleFunc("/transcriptions/{id}/srt", handlers.GetSRTHandler).Methods("GET")
	router.HandleFunc("/transcriptions/{id}/text", handlers.GetTextHandler).Methods("GET")
	router.HandleFunc("/budget", handlers.GetBudgetHandler).Methods("GET")
	router.HandleFunc("/budget/limit", handlers.SetBudgetLimitHandler).Methods("PUT")
	router.HandleFunc("/history", handlers.GetHistoryHandler).Methods("GET")
	router.HandleFunc("/models", handlers.GetModelsHandler).Methods("GET")

	return &apiFixture{router: router, ledger: ledger, hist: hist}
}

func (f *apiFixture) submit(t *testing.T, path, model string) string {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("model", model))
	require.NoError(t, w.WriteField("path", path))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcriptions", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	return resp.JobID
}

func (f *apiFixture) get(t *testing.T, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func (f *apiFixture) waitCompleted(t *testing.T, jobID string) models.Job {
	t.Helper()
	var job models.Job
	require.Eventually(t, func() bool {
		rec := f.get(t, "/transcriptions/"+jobID)
		if rec.Code != http.StatusOK {
			return false
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		return job.Status == models.StatusCompleted || job.Status == models.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, models.StatusCompleted, job.Status, "job error: %s", job.Error)
	return job
}

func audioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nota.mp3")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))
	return path
}

func TestSubmitAndFetchTranscription(t *testing.T) {
	f := newFixture(t)
	jobID := f.submit(t, audioFixture(t), "groq-whisper-large-v3")

	job := f.waitCompleted(t, jobID)
	require.NotNil(t, job.Result)
	assert.Equal(t, "hola mundo", job.Result.Text)
	assert.InDelta(t, 10*0.00011, job.CostUSD, 1e-9, "10 minutes at the fast-cloud rate")

	srt := f.get(t, "/transcriptions/"+jobID+"/srt")
	assert.Equal(t, http.StatusOK, srt.Code)
	assert.Contains(t, srt.Body.String(), "00:00:00,000 --> 00:00:02,000")

	text := f.get(t, "/transcriptions/"+jobID+"/text")
	assert.Equal(t, http.StatusOK, text.Code)
	assert.Contains(t, text.Body.String(), "hola mundo")
}

func TestCompletedJobConsumesBudgetAndRecordsHistory(t *testing.T) {
	f := newFixture(t)
	jobID := f.submit(t, audioFixture(t), "groq-whisper-large-v3")
	f.waitCompleted(t, jobID)

	require.Eventually(t, func() bool {
		records, err := f.hist.List(10)
		return err == nil && len(records) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Less(t, f.ledger.Remaining(), 2.0, "spend was consumed")

	records, err := f.hist.List(10)
	require.NoError(t, err)
	assert.Equal(t, "nota.mp3", records[0].Source)
	assert.Equal(t, 600, records[0].DurationSec)
}

func TestSubmitRejectsUnknownModel(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("model", "no-such-model"))
	require.NoError(t, w.WriteField("path", "/tmp/a.mp3"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcriptions", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRequiresSource(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("model", "whisper-1"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcriptions", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFailedJobReportsError(t *testing.T) {
	f := newFixture(t)
	jobID := f.submit(t, "/no/such/file.mp3", "whisper-1")

	var job models.Job
	require.Eventually(t, func() bool {
		rec := f.get(t, "/transcriptions/"+jobID)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		return job.Status == models.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	assert.Contains(t, job.Error, "file not found")

	srt := f.get(t, "/transcriptions/"+jobID+"/srt")
	assert.Equal(t, http.StatusConflict, srt.Code)
}

func TestBudgetEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/budget")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats budget.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2.0, stats.LimitUSD)

	body := bytes.NewBufferString(`{"limit_usd": 5}`)
	putReq := httptest.NewRequest(http.MethodPut, "/budget/limit", body)
	putRec := httptest.NewRecorder()
	f.router.ServeHTTP(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code)

	rec = f.get(t, "/budget")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 5.0, stats.LimitUSD)
}

func TestModelsEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/models")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.ModelDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.NotEmpty(t, list)
	assert.False(t, list[0].IsFree(), "paid models lead the listing")
}

func TestUnknownJobIs404(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, fmt.Sprintf("/transcriptions/%s", "not-a-job"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
