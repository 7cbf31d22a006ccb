package storage

import (
	"errors"
	"sync"

	"transcriptor/pkg/models"
)

// JobStore tracks in-flight and finished transcription jobs for the API.
type JobStore interface {
	StoreJob(job *models.Job) error
	GetJob(id string) (*models.Job, error)
	UpdateJobStatus(id string, status models.JobStatus) error
	CompleteJob(id string, result *models.TranscriptionResult, cost float64) error
	FailJob(id string, errMsg string) error
}

var ErrJobNotFound = errors.New("job not found")

type jobStore struct {
	jobs map[string]*models.Job
	mu   sync.RWMutex
}

func NewJobStore() JobStore {
	return &jobStore{jobs: make(map[string]*models.Job)}
}

func (s *jobStore) StoreJob(job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *jobStore) GetJob(id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, ErrJobNotFound
	}

	// Copy so callers never observe a job mid-update.
	cp := *job
	return &cp, nil
}

func (s *jobStore) UpdateJobStatus(id string, status models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return ErrJobNotFound
	}
	job.Status = status
	return nil
}

func (s *jobStore) CompleteJob(id string, result *models.TranscriptionResult, cost float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return ErrJobNotFound
	}
	job.Status = models.StatusCompleted
	job.Result = result
	job.CostUSD = cost
	return nil
}

func (s *jobStore) FailJob(id string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return ErrJobNotFound
	}
	job.Status = models.StatusFailed
	job.Error = errMsg
	return nil
}
