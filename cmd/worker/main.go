package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"paravec/internal/app"
	"paravec/internal/httputil"
	"paravec/internal/paravec"
	"paravec/internal/queue"
	"paravec/internal/store"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	if deps.Store == nil || deps.Queue == nil {
		deps.Log.Error("worker needs a store and a queue", "store", deps.Config.StoreProvider, "queue", deps.Config.QueueProvider)
		os.Exit(1)
	}
	deps.Log.Info("labelling worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeInfer, func(ctx context.Context, task queue.Task) error {
			payload, err := queue.DecodeInferPayload(task)
			if err != nil {
				return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
			}
			return handleInfer(ctx, deps, payload)
		})
	})

	// Run health check server
	health := httputil.ServeHealth(fmt.Sprintf(":%d", deps.Config.HealthPort), deps.Log)
	g.Go(func() error {
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return health.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("labelling worker stopped", "err", err)
	}
}

// handleInfer infers a stored document's vector, ranks its labels and saves
// both. Input errors mark the document failed and are not retried.
func handleInfer(ctx context.Context, deps app.Deps, payload queue.InferPayload) error {
	log := deps.Log.With("document_id", payload.DocumentID)
	doc, err := deps.Store.GetDocument(ctx, payload.DocumentID)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
		}
		return err
	}

	topN := payload.TopN
	if topN <= 0 {
		topN = deps.Config.DefaultTopN
	}

	vec, err := deps.Model.InferText(ctx, doc.Content, deps.Model.DefaultParams())
	if err != nil {
		if isInputError(err) {
			if upErr := deps.Store.UpdateDocumentStatus(ctx, doc.ID, store.StatusFailed); upErr != nil {
				log.Error("failed to mark document failed", "err", upErr)
			}
			log.Warn("document cannot be labelled", "err", err)
			return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
		}
		return err
	}
	ranked, err := deps.Model.NearestLabelsScored(vec, topN)
	if err != nil {
		return err
	}

	inf := store.Inference{DocumentID: doc.ID, Vector: vec, Model: deps.Config.ModelPath}
	for _, r := range ranked {
		inf.Labels = append(inf.Labels, store.LabelScore{Label: r.Label, Score: r.Score})
	}
	if err := deps.Store.SaveInference(ctx, inf); err != nil {
		return err
	}
	log.Info("document labelled", "labels", len(inf.Labels))
	return nil
}

func isInputError(err error) bool {
	return errors.Is(err, paravec.ErrEmptyInput) ||
		errors.Is(err, paravec.ErrUnknownToken)
}
