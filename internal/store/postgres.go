package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"paravec/internal/embeddings"
)

type PostgresStore struct {
	db  *sql.DB
	dim int
}

// NewPostgres connects and migrates; dim sizes the pgvector column.
func NewPostgres(dsn string, dim int) (*PostgresStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", dim)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return newPostgresFromDB(db, dim)
}

// newPostgresFromDB takes ownership of db and closes it if migration fails.
func newPostgresFromDB(db *sql.DB, dim int) (*PostgresStore, error) {
	s := &PostgresStore{db: db, dim: dim}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps the server and worker from migrating concurrently.
	const lockID = 7301442871

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			filename TEXT,
			content TEXT,
			status TEXT,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS inferences (
			document_id UUID PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
			vector vector(%d),
			labels TEXT[],
			scores REAL[],
			model TEXT,
			created_at TIMESTAMPTZ DEFAULT now()
		);`, s.dim),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS inferences_vector_idx
		ON inferences USING ivfflat (vector vector_cosine_ops)
		WITH (lists = 100)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, filename, content string) (Document, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents(id, filename, content, status) VALUES($1,$2,$3,$4)`,
		id, filename, content, StatusProcessing)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Filename: filename, Content: content, Status: StatusProcessing, CreatedAt: time.Now()}, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	doc := Document{ID: id}
	row := s.db.QueryRowContext(ctx, `SELECT filename, content, status, created_at FROM documents WHERE id=$1`, id)
	if err := row.Scan(&doc.Filename, &doc.Content, &doc.Status, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (s *PostgresStore) SaveInference(ctx context.Context, inf Inference) error {
	if len(inf.Vector) != s.dim {
		return fmt.Errorf("vector has %d dimensions, store expects %d", len(inf.Vector), s.dim)
	}
	names := make([]string, len(inf.Labels))
	scores := make([]float32, len(inf.Labels))
	for i, l := range inf.Labels {
		names[i] = l.Label
		scores[i] = l.Score
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inferences(document_id, vector, labels, scores, model)
		VALUES($1,$2::vector,$3,$4,$5)
		ON CONFLICT (document_id) DO UPDATE
		SET vector=excluded.vector, labels=excluded.labels, scores=excluded.scores, model=excluded.model, created_at=now()`,
		inf.DocumentID, vectorToString(inf.Vector), pq.Array(names), pq.Array(scores), inf.Model)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE documents SET status=$1 WHERE id=$2`, StatusReady, inf.DocumentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return tx.Commit()
}

func (s *PostgresStore) GetInference(ctx context.Context, docID uuid.UUID) (Inference, error) {
	var (
		vec    string
		names  []string
		scores []float32
		model  sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `SELECT vector::text, labels, scores, model FROM inferences WHERE document_id=$1`, docID)
	if err := row.Scan(&vec, pq.Array(&names), pq.Array(&scores), &model); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Inference{}, ErrNotInferred
		}
		return Inference{}, fmt.Errorf("failed to get inference for doc %s: %w", docID, err)
	}
	v, err := parseVector(vec)
	if err != nil {
		return Inference{}, err
	}
	inf := Inference{DocumentID: docID, Vector: v, Model: model.String}
	for i, name := range names {
		ls := LabelScore{Label: name}
		if i < len(scores) {
			ls.Score = scores[i]
		}
		inf.Labels = append(inf.Labels, ls)
	}
	return inf, nil
}

func (s *PostgresStore) Similar(ctx context.Context, docID uuid.UUID, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	var queryVec string
	err := s.db.QueryRowContext(ctx, `SELECT vector::text FROM inferences WHERE document_id=$1`, docID).Scan(&queryVec)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotInferred
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			d.id,
			d.filename,
			d.status,
			d.created_at,
			1 - (i.vector <=> $1::vector) AS similarity
		FROM inferences i
		JOIN documents d ON d.id = i.document_id
		WHERE i.document_id <> $2
		ORDER BY i.vector <=> $1::vector
		LIMIT $3
	`, queryVec, docID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Document.ID, &r.Document.Filename, &r.Document.Status, &r.Document.CreatedAt, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// vectorToString converts a Vector ([]float32) to pgvector array format.
// Format: "[0.1,0.2,0.3,...]"
func vectorToString(v embeddings.Vector) string {
	if len(v) == 0 {
		return "[]"
	}
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVector reads pgvector's text form back into a Vector.
func parseVector(s string) (embeddings.Vector, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed vector %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return embeddings.Vector{}, nil
	}
	parts := strings.Split(body, ",")
	out := make(embeddings.Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector component %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
