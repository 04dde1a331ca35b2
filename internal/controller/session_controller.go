package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/commercegate/paypal-sessions/internal/domain/session"
	"github.com/commercegate/paypal-sessions/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionController handles payment-session HTTP requests.
type SessionController struct {
	sessionService *service.SessionService
}

// NewSessionController creates a new SessionController.
func NewSessionController(sessionService *service.SessionService) *SessionController {
	return &SessionController{sessionService: sessionService}
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionController) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.sessionService.CreateSession(r.Context(), req.Amount, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromSession(sess))
}

// GetSession handles GET /api/v1/sessions/{id}. With ?refresh=true the
// provider is consulted first.
func (h *SessionController) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid session id", Code: "invalid_id"})
		return
	}

	refresh := r.URL.Query().Get("refresh") == "true"
	sess, err := h.sessionService.GetSession(r.Context(), id, refresh)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromSession(sess))
}

// ListSessions handles GET /api/v1/sessions
func (h *SessionController) ListSessions(w http.ResponseWriter, r *http.Request) {
	filter := session.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := session.Status(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("currency"); s != "" {
		filter.Currency = &s
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	filter.SortBy = r.URL.Query().Get("sort_by")
	filter.SortOrder = r.URL.Query().Get("sort_order")

	sessions, err := h.sessionService.ListSessions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]*SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, FromSession(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateSession handles PUT /api/v1/sessions/{id}
func (h *SessionController) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid session id", Code: "invalid_id"})
		return
	}

	var req UpdateSessionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var sess *session.PaymentSession
	switch {
	case req.Amount != nil:
		currency := ""
		if req.Currency != nil {
			currency = *req.Currency
		}
		sess, err = h.sessionService.UpdateAmount(r.Context(), id, *req.Amount, currency)
	case req.Data != nil:
		sess, err = h.sessionService.UpdateData(r.Context(), id, req.Data)
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "nothing to update", Code: "validation_error"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromSession(sess))
}

// DeleteSession handles DELETE /api/v1/sessions/{id}
func (h *SessionController) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid session id", Code: "invalid_id"})
		return
	}

	if err := h.sessionService.DeleteSession(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthorizeSession handles POST /api/v1/sessions/{id}/authorize
func (h *SessionController) AuthorizeSession(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.sessionService.Authorize)
}

// CaptureSession handles POST /api/v1/sessions/{id}/capture
func (h *SessionController) CaptureSession(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.sessionService.Capture)
}

// CancelSession handles POST /api/v1/sessions/{id}/cancel
func (h *SessionController) CancelSession(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.sessionService.Cancel)
}

// RefundSession handles POST /api/v1/sessions/{id}/refund
func (h *SessionController) RefundSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid session id", Code: "invalid_id"})
		return
	}

	var req RefundSessionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.sessionService.Refund(r.Context(), id, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromSession(sess))
}

func (h *SessionController) lifecycle(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id uuid.UUID) (*session.PaymentSession, error),
) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid session id", Code: "invalid_id"})
		return
	}

	sess, err := op(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromSession(sess))
}
