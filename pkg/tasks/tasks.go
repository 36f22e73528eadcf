// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// KnowledgeIngestTask asks the pipeline to rebuild knowledge base entries.
// An empty Category rebuilds every category.
type KnowledgeIngestTask struct {
	TaskID      string    `json:"task_id"`
	Category    string    `json:"category,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Key identifies the task for retry bookkeeping.
func (t KnowledgeIngestTask) Key() string {
	if t.TaskID != "" {
		return t.TaskID
	}
	if t.Category != "" {
		return "category:" + t.Category
	}
	return "all"
}
