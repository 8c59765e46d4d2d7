package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"paravec/internal/embeddings"
)

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNotInferred      = errors.New("document has no inferred vector")
)

type Document struct {
	ID        uuid.UUID
	Filename  string
	Content   string
	Status    DocumentStatus
	CreatedAt time.Time
}

// LabelScore is one ranked label stored alongside an inference.
type LabelScore struct {
	Label string
	Score float32
}

// Inference is the vector and label ranking computed for a document.
type Inference struct {
	DocumentID uuid.UUID
	Vector     embeddings.Vector
	Labels     []LabelScore
	Model      string
}

type SearchResult struct {
	Document Document
	Score    float32
}

// Store defines persistence contract; an external DB implementation can replace this.
type Store interface {
	CreateDocument(ctx context.Context, filename, content string) (Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error
	// SaveInference stores inf and marks the document ready.
	SaveInference(ctx context.Context, inf Inference) error
	GetInference(ctx context.Context, docID uuid.UUID) (Inference, error)
	// Similar returns up to k other documents nearest to docID's vector.
	Similar(ctx context.Context, docID uuid.UUID, k int) ([]SearchResult, error)
}
