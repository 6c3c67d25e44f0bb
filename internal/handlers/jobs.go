// internal/handlers/jobs.go
package handlers

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// QueueInspector is the subset of *asynq.Inspector used for job status and
// health reporting
type QueueInspector interface {
	Queues() ([]string, error)
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	Servers() ([]*asynq.ServerInfo, error)
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// JobStatus reports the progress of a background job
type JobStatus struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	State       string     `json:"state"`
	Retried     int        `json:"retried"`
	MaxRetry    int        `json:"max_retry"`
	LastError   string     `json:"last_error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
}

func newJobStatus(info *asynq.TaskInfo) *JobStatus {
	status := &JobStatus{
		ID:        info.ID,
		Type:      info.Type,
		State:     info.State.String(),
		Retried:   info.Retried,
		MaxRetry:  info.MaxRetry,
		LastError: info.LastErr,
	}
	if !info.CompletedAt.IsZero() {
		completed := info.CompletedAt
		status.CompletedAt = &completed
	}
	return status
}

// lookupTask finds a task in queue. Tasks past their retention are gone and
// reported as not found.
func lookupTask(inspector QueueInspector, queue, id, resource string) (*asynq.TaskInfo, error) {
	if inspector == nil {
		return nil, domain.NewNotFoundError(resource, id)
	}

	info, err := inspector.GetTaskInfo(queue, id)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil, domain.NewNotFoundError(resource, id)
	}
	if err != nil {
		return nil, err
	}
	return info, nil
}
