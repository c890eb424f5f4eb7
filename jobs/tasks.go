package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGeoRefresh reloads the geographic hierarchy snapshot.
	TaskGeoRefresh = "geo:refresh"
	// TaskProfilesSweep drops registry entries of deactivated users.
	TaskProfilesSweep = "profiles:sweep"
)

// GeoRefreshPayload configures a hierarchy reload.
type GeoRefreshPayload struct {
	// Reason is recorded in logs; refreshes happen on schedule and on
	// demand after reference-data edits.
	Reason string `json:"reason,omitempty"`
}

// NewGeoRefreshTask constructs a geo refresh task.
func NewGeoRefreshTask(payload GeoRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGeoRefresh, data), nil
}

// NewProfilesSweepTask constructs a profile sweep task.
func NewProfilesSweepTask() *asynq.Task {
	return asynq.NewTask(TaskProfilesSweep, nil)
}
