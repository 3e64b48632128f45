package backend

import (
	"fmt"
	"time"
)

// Health is the result of probing the backend's root endpoint. It is a
// value, not an error: an unreachable backend is a normal state the
// session keeps operating in.
type Health struct {
	Connected bool
	Detail    string // human-readable reason when not connected
}

// ConfigError indicates the backend reported its own misconfiguration
// (e.g. a missing API key). Retrying does not help until an operator
// fixes the deployment.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("backend misconfigured: %s", e.Detail)
}

// NetworkError covers transport failures, timeouts and non-2xx responses
// from the chat, availability and booking endpoints. Transient and
// user-retryable.
type NetworkError struct {
	StatusCode    int    // 0 when the request never produced a response
	ServerMessage string // message extracted from the error body, if any
	Err           error  // underlying transport error, if any
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend request failed: %v", e.Err)
	}
	if e.ServerMessage != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.ServerMessage)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Slot is a bookable time interval offered by the calendar collaborator
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BookingRequest is the payload for POST /api/calendar/book
type BookingRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Reason    string    `json:"reason"`
}

// BookingResult is the successful response from the booking endpoint.
// Immutable once created.
type BookingResult struct {
	EventID   string    `json:"event_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Email     string    `json:"email"`
	EventLink string    `json:"event_link,omitempty"`
}

// Wire types for the collaborator contract

type chatRequest struct {
	Content string `json:"content"`
}

type chatResponse struct {
	Content string `json:"content"`
	Agent   string `json:"agent,omitempty"`
}

type availabilityResponse struct {
	AvailableSlots []Slot `json:"available_slots"`
}

// errorBody covers both error shapes the backend produces: {"message": ...}
// from the calendar endpoints and {"detail": ...} from the chat endpoint
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Detail
}
