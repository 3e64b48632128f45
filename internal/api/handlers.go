package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mnoushir/site-assistant/internal/assistant"
	"github.com/mnoushir/site-assistant/internal/booking"
	"github.com/mnoushir/site-assistant/internal/config"
	"github.com/mnoushir/site-assistant/internal/websocket"
	"github.com/mnoushir/site-assistant/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	manager  *assistant.Manager
	wsServer *websocket.Server
	config   *config.Config
	logger   *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(manager *assistant.Manager, wsServer *websocket.Server, config *config.Config, logger *logger.Logger) *Handler {
	return &Handler{
		manager:  manager,
		wsServer: wsServer,
		config:   config,
		logger:   logger.Named("api-handler"),
	}
}

// CreateSession opens a new assistant session
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.CreateSession(r.Context())
	if err != nil {
		if errors.Is(err, assistant.ErrTooManySessions) {
			writeError(w, http.StatusServiceUnavailable, "Too many open sessions")
			return
		}
		h.logger.Error("Failed to create session", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, session.Snapshot())
}

// GetSession returns a rendering snapshot of the session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// CloseSession closes the session and releases it
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.manager.CloseSession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitMessage submits one visitor input to the session
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := session.Submit(r.Context(), req.Text); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session.Snapshot())
}

// SelectSlot picks a slot in the session's booking flow
func (h *Handler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Start time.Time `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Start.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid or missing slot start time")
		return
	}

	if err := session.SelectSlot(req.Start); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// UpdateBookingForm mutates one field of the booking form
func (h *Handler) UpdateBookingForm(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := session.UpdateBookingField(req.Field, req.Value); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// SubmitBooking validates and submits the booking form
func (h *Handler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.SubmitBooking(r.Context()); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session.Snapshot())
}

// RetryAvailability re-runs the availability fetch after a failure
func (h *Handler) RetryAvailability(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.RetryAvailability(r.Context()); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session.Snapshot())
}

// CancelBooking discards the booking flow without a message
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.CancelBooking(); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// CloseBooking closes the booking flow; a confirmed booking emits its
// summary message before the flow is discarded
func (h *Handler) CloseBooking(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.CloseBooking(); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// SessionEvents attaches a WebSocket connection to the session's event
// stream
func (h *Handler) SessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.manager.GetSession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.wsServer.HandleConnection(w, r, sessionID)
}

// Health reports service liveness and the open session count
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"open_sessions": h.manager.Count(),
		"timestamp":     time.Now().UTC(),
	})
}

// session resolves the sessionID URL parameter, writing a 404 on failure
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*assistant.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.manager.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return session, true
}

// writeSessionError maps session and booking errors to HTTP status codes
func (h *Handler) writeSessionError(w http.ResponseWriter, err error) {
	var vErr *booking.ValidationError

	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "Input is empty")
	case errors.Is(err, booking.ErrUnknownField):
		writeError(w, http.StatusBadRequest, "Unknown booking form field")
	case errors.As(err, &vErr):
		writeError(w, http.StatusUnprocessableEntity, vErr.Error())
	case errors.Is(err, booking.ErrUnknownSlot):
		writeError(w, http.StatusUnprocessableEntity, "Slot is not in the loaded availability")
	case errors.Is(err, assistant.ErrBusy), errors.Is(err, booking.ErrBusy):
		writeError(w, http.StatusConflict, "A request is already in progress")
	case errors.Is(err, assistant.ErrBookingActive):
		writeError(w, http.StatusConflict, "Close the booking surface before sending a message")
	case errors.Is(err, assistant.ErrNoBooking), errors.Is(err, booking.ErrInvalidPhase), errors.Is(err, booking.ErrDiscarded):
		writeError(w, http.StatusConflict, "Operation not valid in the current booking state")
	case errors.Is(err, assistant.ErrClosed):
		writeError(w, http.StatusGone, "Session is closed")
	default:
		h.logger.Error("Unhandled session error", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
