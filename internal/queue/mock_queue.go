package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockQueue records enqueued labelling tasks for handler tests.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, task Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	args := m.Called(ctx, taskType, handler)
	return args.Error(0)
}

// ExpectInfer expects one Enqueue of an infer task for documentID with the
// given topN.
func (m *MockQueue) ExpectInfer(documentID uuid.UUID, topN int) *mock.Call {
	return m.On("Enqueue", mock.Anything, mock.MatchedBy(func(task Task) bool {
		p, err := DecodeInferPayload(task)
		return err == nil && p.DocumentID == documentID && p.TopN == topN
	}))
}
