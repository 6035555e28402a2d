// Package handler exposes the message gate to trusted chat backends over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"chatguard/internal/moderation/models"
	id "chatguard/pkg/domain"
	dErrors "chatguard/pkg/domain-errors"
	"chatguard/pkg/platform/httputil"
	"chatguard/pkg/platform/middleware/auth"
	"chatguard/pkg/platform/middleware/requesttime"
)

// maxBodyBytes bounds an evaluate request; chat messages are far smaller.
const maxBodyBytes = 64 << 10

// Service is the gate surface the handler needs.
type Service interface {
	Evaluate(ctx context.Context, senderID id.UserID, text string) (*models.Decision, error)
	Status(ctx context.Context, userID id.UserID) (*models.EnforcementStatus, error)
	History(ctx context.Context, userID id.UserID, limit int) ([]*models.ViolationEvent, error)
}

// EvaluateRequest is the body of POST /internal/messages/evaluate.
type EvaluateRequest struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}

// failClosedResponse carries the fail-closed decision next to the error code
// so callers that only read "allowed" still refuse the send.
type failClosedResponse struct {
	*models.Decision
	Error string `json:"error"`
}

type violationsResponse struct {
	UserID     string                   `json:"user_id"`
	Violations []*models.ViolationEvent `json:"violations"`
}

type Handler struct {
	gate      Service
	logger    *slog.Logger
	validator auth.TokenValidator
}

func New(gate Service, validator auth.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, validator: validator, logger: logger}
}

// Register mounts the moderation routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/internal", func(r chi.Router) {
		r.Use(requesttime.Middleware)
		r.Use(auth.RequireServiceToken(h.validator, h.logger))
		r.Post("/messages/evaluate", h.handleEvaluate)
		r.Get("/users/{userID}/enforcement", h.handleStatus)
		r.Get("/users/{userID}/violations", h.handleViolations)
	})
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EvaluateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid evaluate request", "error", err.Error())
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	senderID, err := id.ParseUserID(strings.TrimSpace(req.SenderID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.gate.Evaluate(ctx, senderID, req.Text)
	if err != nil {
		if decision != nil && dErrors.HasCode(err, dErrors.CodeUnavailable) {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, failClosedResponse{
				Decision: decision,
				Error:    string(dErrors.CodeUnavailable),
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decision)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.gate.Status(r.Context(), userID)
	if err != nil {
		h.logError(r.Context(), "failed to get enforcement status", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleViolations(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be an integer"))
			return
		}
	}
	events, err := h.gate.History(r.Context(), userID, limit)
	if err != nil {
		h.logError(r.Context(), "failed to list violations", err)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []*models.ViolationEvent{}
	}
	httputil.WriteJSON(w, http.StatusOK, violationsResponse{UserID: userID.String(), Violations: events})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
		return
	}
	h.logger.ErrorContext(ctx, msg, "error", err)
}

// Health answers liveness probes.
func Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Check is one named readiness dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Ready answers readiness probes. Any failing check yields 503 so the chat
// service stops routing sends to an instance that would fail closed anyway.
func Ready(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Probe(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				results[c.Name] = err.Error()
				continue
			}
			results[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, results)
	}
}
