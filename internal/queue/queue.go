package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paravec/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeInfer TaskType = "infer"
)

// Task represents a unit of work shared between the server and workers.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

const maxBackoff = time.Minute

// ErrPermanent marks handler failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent task failure")

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.CappedBackoff(attempt, base, maxBackoff)):
		}
	}
	return nil
}

// InferPayload asks a worker to infer and label a stored document.
type InferPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	TopN       int       `json:"top_n"`
}

// NewInferTask wraps p in a task of type TaskTypeInfer.
func NewInferTask(p InferPayload) (Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Task{}, err
	}
	return Task{ID: uuid.New(), Type: TaskTypeInfer, Payload: body, MaxAttempts: 5}, nil
}

// DecodeInferPayload reads the payload of an infer task.
func DecodeInferPayload(task Task) (InferPayload, error) {
	if task.Type != TaskTypeInfer {
		return InferPayload{}, fmt.Errorf("task %s has type %q, want %q", task.ID, task.Type, TaskTypeInfer)
	}
	var p InferPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return InferPayload{}, fmt.Errorf("decode infer payload: %w", err)
	}
	if p.DocumentID == uuid.Nil {
		return InferPayload{}, fmt.Errorf("infer payload without document id")
	}
	return p, nil
}
