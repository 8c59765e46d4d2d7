package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"paravec/internal/app"
	"paravec/internal/cache"
	"paravec/internal/embeddings"
	"paravec/internal/httputil"
	"paravec/internal/labels"
	"paravec/internal/paravec"
	"paravec/internal/queue"
	"paravec/internal/store"
)

const (
	maxJSONBody    = 1 << 20
	defaultSimilar = 5
	maxSimilar     = 100
)

type inferRequest struct {
	Text            string   `json:"text" validate:"required_without=Tokens"`
	Tokens          []string `json:"tokens" validate:"omitempty,dive,required"`
	LearningRate    *float64 `json:"learning_rate" validate:"omitempty,gt=0"`
	MinLearningRate *float64 `json:"min_learning_rate" validate:"omitempty,gte=0"`
	Iterations      *int     `json:"iterations" validate:"omitempty,gt=0,lte=10000"`
}

type inferResponse struct {
	Vector     embeddings.Vector `json:"vector"`
	Dimensions int               `json:"dimensions"`
}

type labelsRequest struct {
	Text   string   `json:"text" validate:"required_without=Tokens"`
	Tokens []string `json:"tokens" validate:"omitempty,dive,required"`
	TopN   int      `json:"top_n" validate:"omitempty,gte=1,lte=1000"`
}

type labelsResponse struct {
	Labels []string            `json:"labels"`
	Scores []cache.ScoredLabel `json:"scores"`
	Cached bool                `json:"cached"`
}

func inferHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inferRequest
		if err := httputil.DecodeJSON(w, r, &req, maxJSONBody); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		params := deps.Model.DefaultParams()
		if req.LearningRate != nil {
			params.LearningRate = *req.LearningRate
		}
		if req.MinLearningRate != nil {
			params.MinLearningRate = *req.MinLearningRate
		}
		if req.Iterations != nil {
			params.Iterations = *req.Iterations
		}

		var (
			vec embeddings.Vector
			err error
		)
		if len(req.Tokens) > 0 {
			vec, err = deps.Model.InferVector(r.Context(), req.Tokens, params)
		} else {
			vec, err = deps.Model.InferText(r.Context(), req.Text, params)
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "inference failed: "+err.Error(), err, statusFor(err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, inferResponse{Vector: vec, Dimensions: len(vec)})
	}
}

func labelsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req labelsRequest
		if err := httputil.DecodeJSON(w, r, &req, maxJSONBody); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		topN := req.TopN
		if topN == 0 {
			topN = deps.Config.DefaultTopN
		}

		// Only text queries are cached; token lists are usually machine generated.
		var key string
		if len(req.Tokens) == 0 && deps.Cache != nil {
			key = cache.Key(req.Text, topN)
			hit, err := deps.Cache.GetLabels(ctx, key)
			if err != nil {
				deps.Log.Warn("cache lookup failed", "err", err)
			} else if hit != nil {
				writeLabels(w, hit.Labels, true)
				return
			}
		}

		var (
			scored []labels.Similarity
			err    error
		)
		if len(req.Tokens) > 0 {
			scored, err = deps.Model.NearestLabelsScoredForTokens(ctx, req.Tokens, topN)
		} else {
			scored, err = deps.Model.NearestLabelsScoredForText(ctx, req.Text, topN)
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "label ranking failed: "+err.Error(), err, statusFor(err))
			return
		}

		result := toScoredLabels(scored)
		if key != "" {
			if err := deps.Cache.SetLabels(ctx, key, &cache.LabelResult{Labels: result}, deps.Config.CacheTTL); err != nil {
				deps.Log.Warn("cache store failed", "err", err)
			}
		}
		writeLabels(w, result, false)
	}
}

func extractHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		committed := deps.Model.ExtractLabels()
		if committed && deps.Cache != nil {
			if err := deps.Cache.Invalidate(r.Context()); err != nil {
				deps.Log.Warn("cache invalidation failed", "err", err)
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"committed": committed,
			"labels":    deps.Model.Labels(),
		})
	}
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Store == nil || deps.Queue == nil {
			httputil.Fail(deps.Log, w, "document processing is disabled", nil, http.StatusServiceUnavailable)
			return
		}

		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		contentType, ok := detectContentType(header.Filename, header.Header.Get("Content-Type"))
		if !ok {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF and TXT allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text := extractText(deps, header.Filename, contentType, content)

		doc, err := deps.Store.CreateDocument(ctx, header.Filename, text)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist document", err, http.StatusInternalServerError)
			return
		}

		task, err := queue.NewInferTask(queue.InferPayload{DocumentID: doc.ID, TopN: deps.Config.DefaultTopN})
		if err != nil {
			fail(ctx, deps, w, "marshal payload failed", err, doc.ID, http.StatusInternalServerError, true)
			return
		}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			fail(ctx, deps, w, "failed to enqueue document; please retry", err, doc.ID, http.StatusInternalServerError, true)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"document_id": doc.ID.String(),
			"status":      doc.Status,
		})
	}
}

func documentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Store == nil {
			httputil.Fail(deps.Log, w, "document store is disabled", nil, http.StatusServiceUnavailable)
			return
		}
		docID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}
		doc, err := deps.Store.GetDocument(ctx, docID)
		if err != nil {
			httputil.Fail(deps.Log, w, "document not found", err, statusFor(err))
			return
		}

		resp := map[string]any{
			"document_id": doc.ID.String(),
			"filename":    doc.Filename,
			"status":      doc.Status,
			"labels":      []cache.ScoredLabel{},
		}
		if doc.Status == store.StatusReady {
			inf, err := deps.Store.GetInference(ctx, docID)
			switch {
			case err == nil:
				out := make([]cache.ScoredLabel, len(inf.Labels))
				for i, l := range inf.Labels {
					out[i] = cache.ScoredLabel{Label: l.Label, Score: l.Score}
				}
				resp["labels"] = out
			case !errors.Is(err, store.ErrNotInferred):
				httputil.Fail(deps.Log, w, "failed to load labels", err, http.StatusInternalServerError)
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func similarHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httputil.Fail(deps.Log, w, "document store is disabled", nil, http.StatusServiceUnavailable)
			return
		}
		docID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}
		k := defaultSimilar
		if raw := r.URL.Query().Get("k"); raw != "" {
			k, err = strconv.Atoi(raw)
			if err != nil || k < 1 || k > maxSimilar {
				httputil.Fail(deps.Log, w, fmt.Sprintf("k must be between 1 and %d", maxSimilar), err, http.StatusBadRequest)
				return
			}
		}
		results, err := deps.Store.Similar(r.Context(), docID, k)
		if err != nil {
			httputil.Fail(deps.Log, w, "similarity search failed", err, statusFor(err))
			return
		}
		out := make([]map[string]any, 0, len(results))
		for _, res := range results {
			out = append(out, map[string]any{
				"document_id": res.Document.ID.String(),
				"filename":    res.Document.Filename,
				"score":       res.Score,
			})
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"document_id": docID.String(),
			"similar":     out,
		})
	}
}

// fail is a server-specific error handler that can mark documents as failed
func fail(ctx context.Context, deps app.Deps, w http.ResponseWriter, message string, err error, docID uuid.UUID, status int, markFailed bool) {
	log := deps.Log.With("document_id", docID)
	if markFailed && docID != uuid.Nil {
		if upErr := deps.Store.UpdateDocumentStatus(ctx, docID, store.StatusFailed); upErr != nil {
			log.Error("failed to mark document failed", "err", upErr)
		}
	}
	httputil.Fail(log, w, message, err, status)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, paravec.ErrEmptyInput),
		errors.Is(err, paravec.ErrUnknownToken),
		errors.Is(err, paravec.ErrInvalidParams),
		errors.Is(err, paravec.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrNotInferred):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toScoredLabels(in []labels.Similarity) []cache.ScoredLabel {
	out := make([]cache.ScoredLabel, len(in))
	for i, s := range in {
		out[i] = cache.ScoredLabel{Label: s.Label, Score: s.Score}
	}
	return out
}

func writeLabels(w http.ResponseWriter, scored []cache.ScoredLabel, cached bool) {
	names := make([]string, len(scored))
	for i, s := range scored {
		names[i] = s.Label
	}
	httputil.WriteJSON(w, http.StatusOK, labelsResponse{Labels: names, Scores: scored, Cached: cached})
}

// detectContentType falls back to the file extension when the part has no
// Content-Type header.
func detectContentType(filename, contentType string) (string, bool) {
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".txt":
			contentType = "text/plain"
		case ".pdf":
			contentType = "application/pdf"
		}
	}
	switch contentType {
	case "text/plain", "application/pdf":
		return contentType, true
	default:
		return "", false
	}
}
