package deploy

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("deployment job not found")

// Store is the single path through which jobs are read and mutated.
// Both the ticker and the externally-triggered bridge confirmation go
// through Update, so the two can never race on a job.
type Store interface {
	Create(job *Job) error
	Get(id string) (*Job, error)
	Update(id string, mutate func(*Job) error) error
	ListActive() []string
	ListByUser(userID string) []*Job
}

// MemoryStore keeps jobs in process memory. Deliberately not
// crash-safe: pending deployments do not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.clone()
	return nil
}

// Get returns a copy; callers never hold a live pointer into the map.
func (s *MemoryStore) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.clone(), nil
}

func (s *MemoryStore) Update(id string, mutate func(*Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	return mutate(job)
}

func (s *MemoryStore) ListActive() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, job := range s.jobs {
		if !job.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *MemoryStore) ListByUser(userID string) []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var jobs []*Job
	for _, job := range s.jobs {
		if job.UserID == userID {
			jobs = append(jobs, job.clone())
		}
	}
	return jobs
}
