package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQueueFull is returned instead of blocking when every slot is taken.
var ErrQueueFull = errors.New("queue full")

// ErrQueueClosed is returned once Shutdown has begun.
var ErrQueueClosed = errors.New("queue closed")

// Job is one best-effort unit of background work.
type Job struct {
	ID          uuid.UUID
	Kind        string // log label, e.g. "mail"
	SubmittedAt time.Time
	TraceID     string
	Run         func(ctx context.Context) error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
