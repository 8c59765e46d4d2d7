package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateDocument(ctx context.Context, filename, content string) (Document, error) {
	args := m.Called(ctx, filename, content)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStore) SaveInference(ctx context.Context, inf Inference) error {
	args := m.Called(ctx, inf)
	return args.Error(0)
}

func (m *MockStore) GetInference(ctx context.Context, docID uuid.UUID) (Inference, error) {
	args := m.Called(ctx, docID)
	return args.Get(0).(Inference), args.Error(1)
}

func (m *MockStore) Similar(ctx context.Context, docID uuid.UUID, k int) ([]SearchResult, error) {
	args := m.Called(ctx, docID, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SearchResult), args.Error(1)
}
