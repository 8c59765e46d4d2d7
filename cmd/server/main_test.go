package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paravec/internal/app"
	"paravec/internal/cache"
	"paravec/internal/config"
	"paravec/internal/embeddings"
	"paravec/internal/paravec"
	"paravec/internal/queue"
	"paravec/internal/store"
	"paravec/internal/tokenizer"
	"paravec/internal/vocab"
)

func newTestModel(t *testing.T) *paravec.Model {
	t.Helper()
	v := vocab.NewCache()
	v.Add("cat", 5)
	v.Add("dog", 3)
	v.AddLabel("animal", 1)
	table, err := embeddings.NewTable(2, []float32{1, 0, 0.9, 0.1, 0.95, 0.05})
	require.NoError(t, err)
	require.NoError(t, table.WithNegativeSampling([]float32{0.5, -0.2, 0.1, 0.4, -0.3, 0.2}))
	st, err := embeddings.NewStore(v, table)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := paravec.New(st, paravec.DefaultConfig(),
		paravec.WithLogger(log),
		paravec.WithTokenizer(tokenizer.New(tokenizer.Options{})))
	require.NoError(t, err)
	m.CompleteTraining()
	return m
}

func newTestDeps(t *testing.T, st store.Store, q queue.Queue, c cache.Cache) app.Deps {
	return app.Deps{
		Model: newTestModel(t),
		Store: st,
		Queue: q,
		Cache: c,
		Config: config.Config{
			MaxUploadSize: 1024 * 1024, // 1MB for tests
			DefaultTopN:   3,
			CacheTTL:      time.Minute,
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestInferHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"tokens", `{"tokens":["cat","dog"]}`, http.StatusOK},
		{"text", `{"text":"A cat and a dog"}`, http.StatusOK},
		{"custom params", `{"tokens":["cat"],"learning_rate":0.05,"min_learning_rate":0.001,"iterations":3}`, http.StatusOK},
		{"no overlap", `{"text":"zebra"}`, http.StatusBadRequest},
		{"missing input", `{}`, http.StatusBadRequest},
		{"min above rate", `{"tokens":["cat"],"learning_rate":0.01,"min_learning_rate":0.5}`, http.StatusBadRequest},
		{"zero iterations", `{"tokens":["cat"],"iterations":0}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t, nil, nil, nil)
			w := postJSON(t, inferHandler(deps), tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp inferResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, 2, resp.Dimensions)
			assert.Len(t, resp.Vector, 2)
		})
	}
}

func TestLabelsHandler(t *testing.T) {
	key := cache.Key("cat and dog", 1)

	tests := []struct {
		name       string
		body       string
		setup      func(*cache.MockCache)
		wantStatus int
		wantLabels []string
		wantCached bool
	}{
		{
			name: "cache miss ranks and stores",
			body: `{"text":"cat and dog","top_n":1}`,
			setup: func(c *cache.MockCache) {
				c.On("GetLabels", mock.Anything, key).Return(nil, nil).Once()
				c.On("SetLabels", mock.Anything, key, mock.MatchedBy(func(r *cache.LabelResult) bool {
					return len(r.Labels) == 1 && r.Labels[0].Label == "animal"
				}), time.Minute).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantLabels: []string{"animal"},
		},
		{
			name: "cache hit",
			body: `{"text":"cat and dog","top_n":1}`,
			setup: func(c *cache.MockCache) {
				c.On("GetLabels", mock.Anything, key).
					Return(&cache.LabelResult{Labels: []cache.ScoredLabel{{Label: "animal", Score: 0.99}}}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantLabels: []string{"animal"},
			wantCached: true,
		},
		{
			name: "cache error falls through",
			body: `{"text":"cat and dog","top_n":1}`,
			setup: func(c *cache.MockCache) {
				c.On("GetLabels", mock.Anything, key).Return(nil, errors.New("redis down")).Once()
				c.On("SetLabels", mock.Anything, key, mock.Anything, time.Minute).Return(errors.New("redis down")).Once()
			},
			wantStatus: http.StatusOK,
			wantLabels: []string{"animal"},
		},
		{
			name:       "tokens bypass cache",
			body:       `{"tokens":["cat","dog"]}`,
			wantStatus: http.StatusOK,
			wantLabels: []string{"animal"},
		},
		{
			name: "no overlap is an empty ranking",
			body: `{"text":"zebra","top_n":2}`,
			setup: func(c *cache.MockCache) {
				k := cache.Key("zebra", 2)
				c.On("GetLabels", mock.Anything, k).Return(nil, nil).Once()
				c.On("SetLabels", mock.Anything, k, mock.Anything, time.Minute).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantLabels: []string{},
		},
		{
			name:       "top_n out of range",
			body:       `{"text":"cat","top_n":5000}`,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCache := new(cache.MockCache)
			if tt.setup != nil {
				tt.setup(mockCache)
			}
			deps := newTestDeps(t, nil, nil, mockCache)

			w := postJSON(t, labelsHandler(deps), tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				var resp labelsResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, tt.wantLabels, resp.Labels)
				assert.Equal(t, tt.wantCached, resp.Cached)
				assert.Len(t, resp.Scores, len(tt.wantLabels))
			}
			mockCache.AssertExpectations(t)
		})
	}
}

func TestExtractHandlerInvalidatesCache(t *testing.T) {
	mockCache := new(cache.MockCache)
	mockCache.On("Invalidate", mock.Anything).Return(nil).Once()
	deps := newTestDeps(t, nil, nil, mockCache)

	w := postJSON(t, extractHandler(deps), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Committed bool     `json:"committed"`
		Labels    []string `json:"labels"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Committed)
	assert.Equal(t, []string{"animal"}, resp.Labels)
	mockCache.AssertExpectations(t)
}

func TestUploadHandler(t *testing.T) {
	validDocID := uuid.New()

	tests := []struct {
		name          string
		filename      string
		contentType   string
		content       []byte
		setup         func(*store.MockStore, *queue.MockQueue)
		wantStatus    int
		checkResponse func(*testing.T, *http.Response)
	}{
		{
			name:        "successful upload",
			filename:    "test.txt",
			contentType: "text/plain",
			content:     []byte("Hello"),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreateDocument", mock.Anything, "test.txt", "Hello").
					Return(store.Document{ID: validDocID, Status: store.StatusProcessing}, nil).Once()
				q.ExpectInfer(validDocID, 3).Return(nil).Once()
			},
			wantStatus: http.StatusAccepted,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result map[string]any
				if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if result["document_id"] != validDocID.String() {
					t.Errorf("Expected document_id %s, got %v", validDocID, result["document_id"])
				}
				if result["status"] != string(store.StatusProcessing) {
					t.Errorf("Expected status %s, got %v", store.StatusProcessing, result["status"])
				}
			},
		},
		{
			name:        "file too large",
			filename:    "large.txt",
			contentType: "text/plain",
			content:     make([]byte, 2*1024*1024), // 2MB
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "missing Content-Type detects from extension",
			filename:    "test.txt",
			contentType: "", // Empty, should detect from .txt
			content:     []byte("content"),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreateDocument", mock.Anything, "test.txt", "content").
					Return(store.Document{ID: validDocID, Status: store.StatusProcessing}, nil).Once()
				q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:        "unsupported extension",
			filename:    "test.docx",
			contentType: "",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported Content-Type",
			filename:    "test.doc",
			contentType: "application/msword",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "CreateDocument failure",
			filename:    "test.txt",
			contentType: "text/plain",
			content:     []byte("content"),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreateDocument", mock.Anything, "test.txt", "content").
					Return(store.Document{}, errors.New("db error")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:        "Enqueue failure marks doc failed",
			filename:    "test.txt",
			contentType: "text/plain",
			content:     []byte("content"),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreateDocument", mock.Anything, "test.txt", "content").
					Return(store.Document{ID: validDocID, Status: store.StatusProcessing}, nil).Once()
				q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("queue error")).Times(3)
				s.On("UpdateDocumentStatus", mock.Anything, validDocID, store.StatusFailed).Return(nil).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)
			mockQueue := new(queue.MockQueue)

			if tt.setup != nil {
				tt.setup(mockStore, mockQueue)
			}

			deps := newTestDeps(t, mockStore, mockQueue, nil)
			handler := uploadHandler(deps)

			req, err := createMultipartRequest(tt.filename, tt.contentType, tt.content)
			if err != nil {
				t.Fatalf("Failed to create request: %v", err)
			}

			w := httptest.NewRecorder()
			handler(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, resp.StatusCode, body)
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}

			mockStore.AssertExpectations(t)
			mockQueue.AssertExpectations(t)
		})
	}
}

func TestUploadHandlerDisabled(t *testing.T) {
	deps := newTestDeps(t, nil, nil, nil)
	req, err := createMultipartRequest("a.txt", "text/plain", []byte("cat"))
	require.NoError(t, err)
	w := httptest.NewRecorder()
	uploadHandler(deps)(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDocumentHandler(t *testing.T) {
	docID := uuid.New()

	tests := []struct {
		name       string
		id         string
		setup      func(*store.MockStore)
		wantStatus int
		wantLabels int
	}{
		{
			name: "ready with labels",
			id:   docID.String(),
			setup: func(s *store.MockStore) {
				s.On("GetDocument", mock.Anything, docID).
					Return(store.Document{ID: docID, Filename: "a.txt", Status: store.StatusReady}, nil).Once()
				s.On("GetInference", mock.Anything, docID).
					Return(store.Inference{DocumentID: docID, Labels: []store.LabelScore{{Label: "animal", Score: 0.9}}}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantLabels: 1,
		},
		{
			name: "still processing",
			id:   docID.String(),
			setup: func(s *store.MockStore) {
				s.On("GetDocument", mock.Anything, docID).
					Return(store.Document{ID: docID, Status: store.StatusProcessing}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "not found",
			id:   docID.String(),
			setup: func(s *store.MockStore) {
				s.On("GetDocument", mock.Anything, docID).Return(store.Document{}, store.ErrDocumentNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid id",
			id:         "not-a-uuid",
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)
			if tt.setup != nil {
				tt.setup(mockStore)
			}
			r := newRouter(newTestDeps(t, mockStore, new(queue.MockQueue), nil))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/"+tt.id, nil))
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				var resp struct {
					Labels []cache.ScoredLabel `json:"labels"`
				}
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Len(t, resp.Labels, tt.wantLabels)
			}
			mockStore.AssertExpectations(t)
		})
	}
}

func TestSimilarHandler(t *testing.T) {
	docID := uuid.New()
	other := uuid.New()

	tests := []struct {
		name       string
		query      string
		setup      func(*store.MockStore)
		wantStatus int
	}{
		{
			name:  "default k",
			query: "",
			setup: func(s *store.MockStore) {
				s.On("Similar", mock.Anything, docID, 5).
					Return([]store.SearchResult{{Document: store.Document{ID: other, Filename: "b.txt"}, Score: 0.8}}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:  "explicit k",
			query: "?k=2",
			setup: func(s *store.MockStore) {
				s.On("Similar", mock.Anything, docID, 2).Return([]store.SearchResult{}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{name: "k out of range", query: "?k=0", wantStatus: http.StatusBadRequest},
		{name: "k not a number", query: "?k=ten", wantStatus: http.StatusBadRequest},
		{
			name:  "not inferred yet",
			query: "",
			setup: func(s *store.MockStore) {
				s.On("Similar", mock.Anything, docID, 5).Return(nil, store.ErrNotInferred).Once()
			},
			wantStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)
			if tt.setup != nil {
				tt.setup(mockStore)
			}
			r := newRouter(newTestDeps(t, mockStore, new(queue.MockQueue), nil))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID.String()+"/similar"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			mockStore.AssertExpectations(t)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{paravec.ErrEmptyInput, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", paravec.ErrUnknownToken), http.StatusBadRequest},
		{paravec.ErrInvalidParams, http.StatusBadRequest},
		{paravec.ErrDimensionMismatch, http.StatusBadRequest},
		{paravec.ErrConfiguration, http.StatusInternalServerError},
		{store.ErrDocumentNotFound, http.StatusNotFound},
		{store.ErrNotInferred, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestHealthz(t *testing.T) {
	r := newRouter(newTestDeps(t, nil, nil, nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// createMultipartRequest creates a multipart form request with a file
func createMultipartRequest(filename, contentType string, content []byte) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}
