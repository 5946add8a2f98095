package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/datakite/resampled/internal/orchestrator"
	"github.com/datakite/resampled/pkg/types"
)

// Pinger reports metadata-store reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Lifecycle is the orchestrator surface the handlers call.
type Lifecycle interface {
	Submit(ctx context.Context, in orchestrator.SubmitInput) (*orchestrator.SubmitResult, error)
	Retrieve(ctx context.Context, requestID, email string) (*types.RecordView, error)
}

// Subscriber creates email subscriptions on the notification topic.
type Subscriber interface {
	Subscribe(ctx context.Context, email string) (string, error)
}

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	lifecycle  Lifecycle
	subscriber Subscriber
	pinger     Pinger
	logger     *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(lifecycle Lifecycle, subscriber Subscriber, pinger Pinger) *Handlers {
	return &Handlers{
		lifecycle:  lifecycle,
		subscriber: subscriber,
		pinger:     pinger,
		logger:     slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (h *Handlers) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// Health returns the server health status.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := h.pinger.Ping(r.Context()); err != nil {
		status = "degraded"
	}
	h.writeData(w, map[string]string{"status": status})
}

// Submit accepts a resampling submission and returns the stored record with
// a presigned upload URL.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, types.NewValidationError("invalid request body: %v", err))
		return
	}

	result, err := h.lifecycle.Submit(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, result)
}

// Retrieve returns a request record with download URLs for whichever
// artifacts exist. The owner email comes from the query string.
func (h *Handlers) Retrieve(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	email := r.URL.Query().Get("email")

	view, err := h.lifecycle.Retrieve(r.Context(), requestID, email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, view)
}

// Subscribe creates a filtered email subscription on the notification topic.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, types.NewValidationError("invalid request body: %v", err))
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		h.writeError(w, types.NewValidationError("invalid email %q", in.Email))
		return
	}

	arn, err := h.subscriber.Subscribe(r.Context(), email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, map[string]string{"subscriptionArn": arn})
}

func (h *Handlers) writeData(w http.ResponseWriter, data any) {
	if err := json.NewEncoder(w).Encode(map[string]any{"data": data}); err != nil {
		http.Error(w, `{"exception":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeError logs the full error chain and returns the enveloped message
// with the status implied by the error type.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err, "status", status)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"exception": err.Error()})
}

func statusOf(err error) int {
	var (
		verr *types.ValidationError
		nerr *types.NotFoundError
		eerr *types.ExpiredError
		terr *types.TransportError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &nerr):
		return http.StatusNotFound
	case errors.As(err, &eerr):
		return http.StatusGone
	case errors.As(err, &terr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
