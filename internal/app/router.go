package app

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/godilite/bonus-panel/internal/transport/http/api"
	panelhandler "github.com/godilite/bonus-panel/internal/transport/http/handlers/panel"
	"github.com/godilite/bonus-panel/internal/transport/http/middleware"
)

// ReadyCheck reports whether one dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

// NewRouter mounts the dashboard, the JSON API and the probes.
func NewRouter(logger *zap.Logger, panels *panelhandler.Handler, checks map[string]ReadyCheck) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(chimw.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		failed := map[string]string{}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		reqID := middleware.GetRequestID(r.Context())
		if len(failed) > 0 {
			api.WriteJSON(w, http.StatusServiceUnavailable, api.Envelope{
				Success:   false,
				Data:      failed,
				Error:     &api.Error{Code: "not_ready", Message: "dependencies unavailable"},
				RequestID: reqID,
			})
			return
		}
		api.Success(w, map[string]any{"checks": names}, reqID)
	})

	panels.RegisterRoutes(router)
	return router
}
