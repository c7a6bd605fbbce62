package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// DefaultTopic is the message topic jobs are published on.
const DefaultTopic = "jobs"

// Job represents a background job
type Job struct {
	ID        int             `gorm:"primaryKey" json:"id"`
	TaskType  string          `gorm:"not null" json:"task_type"`
	Payload   json.RawMessage `gorm:"type:jsonb" json:"payload"`
	Result    json.RawMessage `gorm:"type:jsonb" json:"result,omitempty"`
	Status    JobStatus       `gorm:"not null;index" json:"status"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobRepository defines the interface for job persistence
type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	// Get returns nil, nil when the job does not exist.
	Get(ctx context.Context, id int) (*Job, error)
	UpdateStatus(ctx context.Context, id int, status JobStatus, err *string) error
	SaveResult(ctx context.Context, id int, result json.RawMessage) error
}
