package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"paravec/internal/app"
	"paravec/internal/httputil"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	r := newRouter(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("server listening", "addr", addr, "labels", len(deps.Model.Labels()))
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/infer", inferHandler(deps))
	r.Post("/api/labels", labelsHandler(deps))
	r.Post("/api/labels/extract", extractHandler(deps))
	r.Post("/api/documents/upload", uploadHandler(deps))
	r.Get("/api/documents/{id}", documentHandler(deps))
	r.Get("/api/documents/{id}/similar", similarHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	return r
}
