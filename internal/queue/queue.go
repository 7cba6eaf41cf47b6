package queue

import "context"

// Message is the work message consumed by the external worker fleet.
type Message struct {
	TeamID string `json:"team_id"`
	JobID  string `json:"job_id"`
}

// Publisher enqueues work messages. The dispatcher publishes exactly one
// message per accepted job; nothing in this process ever consumes them.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}
