package queue

import "context"

// Job processes one message type pulled off the queue.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	// Handle processes one payload. Returning an error requeues the
	// message until the retry limit is reached.
	Handle(ctx context.Context, payload interface{}) error
}
