// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	werrors "github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/errors"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/guardrails"
	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/workflow"
)

// Advancer is the slice of the graph runner the HTTP layer needs.
type Advancer interface {
	CreateCase(ctx context.Context) (*workflow.Case, error)
	GetCase(ctx context.Context, caseID string) (*workflow.Case, error)
	Advance(ctx context.Context, caseID, humanMessage string) (*workflow.Case, string, error)
}

type messageRequest struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	SessionID    string          `json:"session_id"`
	Status       workflow.Status `json:"status"`
	CurrentStage string          `json:"current_stage"`
	Reply        string          `json:"response,omitempty"`
	Customer     interface{}     `json:"customer,omitempty"`
}

// RouterOption configures the HTTP handler.
type RouterOption func(*routerConfig)

type routerConfig struct {
	guard *guardrails.Guard
}

// WithGuard screens inbound messages before they reach the runner.
func WithGuard(guard *guardrails.Guard) RouterOption {
	return func(rc *routerConfig) {
		rc.guard = guard
	}
}

// NewRouter builds the HTTP handler over the graph runner.
func NewRouter(runner Advancer, logger *slog.Logger, opts ...RouterOption) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	var rc routerConfig
	for _, opt := range opts {
		opt(&rc)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/sessions", func(w http.ResponseWriter, req *http.Request) {
		c, err := runner.CreateCase(req.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, sessionResponse{
			SessionID:    c.ID,
			Status:       c.Status,
			CurrentStage: c.CurrentStage,
		})
	})

	r.Get("/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		c, err := runner.GetCase(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})

	r.Post("/sessions/{id}/messages", func(w http.ResponseWriter, req *http.Request) {
		var body messageRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Message == "" {
			http.Error(w, "message is required", http.StatusBadRequest)
			return
		}

		if rc.guard != nil {
			if res := rc.guard.ScreenMessage(body.Message); res.Blocked {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"code":  string(werrors.CodeInvalidInput),
					"error": res.Reason,
				})
				return
			}
		}

		c, reply, err := runner.Advance(req.Context(), chi.URLParam(req, "id"), body.Message)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			SessionID:    c.ID,
			Status:       c.Status,
			CurrentStage: c.CurrentStage,
			Reply:        reply,
			Customer:     c.Data,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	we := werrors.AsWorkflowError(err)
	logger.Error("request failed",
		slog.String("code", string(we.Code)),
		slog.String("error", we.Error()))
	writeJSON(w, we.StatusCode, map[string]string{
		"code":  string(we.Code),
		"error": we.Message,
	})
}
