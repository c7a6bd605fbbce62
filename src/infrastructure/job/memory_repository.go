package job

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// MemoryJobRepository keeps jobs in process memory. Jobs are lost on restart.
type MemoryJobRepository struct {
	mu     sync.Mutex
	nextID int
	jobs   map[int]*Job
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[int]*Job)}
}

func (r *MemoryJobRepository) Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now()
	job := &Job{
		ID:        r.nextID,
		TaskType:  taskType,
		Payload:   payload,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.jobs[job.ID] = job

	cp := *job
	return &cp, nil
}

func (r *MemoryJobRepository) Get(ctx context.Context, id int) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (r *MemoryJobRepository) UpdateStatus(ctx context.Context, id int, status JobStatus, err *string) error {
	return r.update(id, func(job *Job) {
		job.Status = status
		job.Error = err
	})
}

func (r *MemoryJobRepository) SaveResult(ctx context.Context, id int, result json.RawMessage) error {
	return r.update(id, func(job *Job) {
		job.Result = result
	})
}

func (r *MemoryJobRepository) update(id int, fn func(*Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	fn(job)
	job.UpdatedAt = time.Now()
	return nil
}
