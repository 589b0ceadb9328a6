package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheSweep deletes query cache entries already marked stale.
	TaskCacheSweep = "cache:sweep"
)

// CacheSweepPayload describes one sweep run.
type CacheSweepPayload struct {
	// Reason is logged with the run; scheduled runs use "cron".
	Reason string `json:"reason"`
}

// NewCacheSweepTask constructs an Asynq task.
func NewCacheSweepTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(CacheSweepPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheSweep, data, asynq.Queue(QueueDefault)), nil
}
