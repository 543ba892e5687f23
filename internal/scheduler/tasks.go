package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskDedupScan = "leads.dedup.scan"

// DedupScanPayload parameterizes a background duplicate reconciliation
// run. WindowMinutes zero means the configured default window.
type DedupScanPayload struct {
	WindowMinutes int  `json:"windowMinutes"`
	DryRun        bool `json:"dryRun"`
}

func NewDedupScanTask(payload DedupScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDedupScan, data), nil
}

func ParseDedupScanPayload(task *asynq.Task) (DedupScanPayload, error) {
	var payload DedupScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DedupScanPayload{}, err
	}
	return payload, nil
}
