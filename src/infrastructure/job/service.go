package job

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"pdfqa/src/contenthash"
)

type JobService struct {
	publisher  message.Publisher
	repo       JobRepository
	logger     watermill.LoggerAdapter
	topic      string
	archive    Archive
	ingestTask *IngestTask
}

type JobMessage struct {
	JobID    int             `json:"job_id"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

// NewJobService wires the job queue. ingestTask may be nil for a publish-only
// service, and archive may be nil for a consume-only one.
func NewJobService(
	publisher message.Publisher,
	repo JobRepository,
	logger watermill.LoggerAdapter,
	topic string,
	archive Archive,
	ingestTask *IngestTask,
) *JobService {
	if topic == "" {
		topic = DefaultTopic
	}
	return &JobService{
		publisher:  publisher,
		repo:       repo,
		logger:     logger,
		topic:      topic,
		archive:    archive,
		ingestTask: ingestTask,
	}
}

func (s *JobService) Topic() string {
	return s.topic
}

// GetJob returns nil, nil when the job does not exist.
func (s *JobService) GetJob(ctx context.Context, id int) (*Job, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// EnqueueJob creates a new job and publishes it to the message queue
func (s *JobService) EnqueueJob(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	job, err := s.repo.Create(ctx, taskType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	jobMsg := JobMessage{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Payload:  job.Payload,
	}

	msgPayload, err := json.Marshal(jobMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	return job, nil
}

// SubmitIngest archives the PDF at path under its content hash and enqueues
// an ingest job for it. It returns the document id the job will produce.
func (s *JobService) SubmitIngest(ctx context.Context, path, filename, uploader string) (string, *Job, error) {
	if s.archive == nil {
		return "", nil, fmt.Errorf("no archive configured for asynchronous ingestion")
	}

	documentID, err := contenthash.HashFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash pdf: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	key := NewObjectKey(documentID)
	if err := s.archive.Put(ctx, key, f, info.Size()); err != nil {
		return "", nil, fmt.Errorf("failed to archive pdf: %w", err)
	}

	payload, err := json.Marshal(IngestPayload{
		DocumentID: documentID,
		ObjectKey:  key,
		Filename:   filename,
		Uploader:   uploader,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal ingest payload: %w", err)
	}

	job, err := s.EnqueueJob(ctx, TaskTypeIngest, payload)
	if err != nil {
		return "", nil, err
	}
	return documentID, job, nil
}

// ProcessJobMessage processes a job message from the queue
func (s *JobService) ProcessJobMessage(msg *message.Message) error {
	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := msg.Context()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %d", jobMsg.JobID)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusRunning, nil); err != nil {
		return fmt.Errorf("failed to update job status to running: %w", err)
	}

	result, err := s.processJob(ctx, job)
	if err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, job.ID, JobStatusFailed, &errStr); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, watermill.LogFields{
				"job_id": job.ID,
			})
		}
		return fmt.Errorf("failed to process job: %w", err)
	}

	if result != nil {
		if err := s.repo.SaveResult(ctx, job.ID, result); err != nil {
			return fmt.Errorf("failed to save job result: %w", err)
		}
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	s.logger.Info("Job completed", watermill.LogFields{
		"job_id":    job.ID,
		"task_type": job.TaskType,
	})
	return nil
}

// processJob handles different types of jobs
func (s *JobService) processJob(ctx context.Context, job *Job) (json.RawMessage, error) {
	switch job.TaskType {
	case TaskTypeIngest:
		if s.ingestTask == nil {
			return nil, fmt.Errorf("ingest task is not configured")
		}
		return s.ingestTask.HandleIngestTask(ctx, job.Payload)
	default:
		return nil, fmt.Errorf("unknown task type: %s", job.TaskType)
	}
}
