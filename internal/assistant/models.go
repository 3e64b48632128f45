package assistant

import (
	"time"

	"github.com/mnoushir/site-assistant/internal/booking"
)

// Origin identifies who produced a message
type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// Message is one entry in a session's log. Immutable once created.
type Message struct {
	ID     string    `json:"id"`
	Origin Origin    `json:"origin"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// ConnectivityStatus reflects the last known state of the assistant
// backend. Written only by the health check and by chat transport
// outcomes.
type ConnectivityStatus struct {
	Connected bool   `json:"connected"`
	Detail    string `json:"detail"`
}

// Intent is the classified purpose of a submitted input
type Intent int

const (
	IntentGeneral Intent = iota
	IntentBooking
)

// String returns the wire name of the intent
func (i Intent) String() string {
	if i == IntentBooking {
		return "booking"
	}
	return "general"
}

// View names the surface the session currently shows
type View string

const (
	ViewChat    View = "chat"
	ViewBooking View = "booking"
)

// Event types pushed to the rendering layer
const (
	EventMessage      = "message"
	EventConnectivity = "connectivity"
	EventPending      = "pending"
	EventBooking      = "booking"
	EventClosed       = "session_closed"
)

// Publisher delivers session events to whatever renders the session
// (in production the WebSocket hub). Implementations must not block.
type Publisher interface {
	Publish(sessionID string, eventType string, data map[string]any)
}

// Snapshot is a consistent rendering copy of the whole session state
type Snapshot struct {
	ID           string             `json:"id"`
	Messages     []Message          `json:"messages"`
	Connectivity ConnectivityStatus `json:"connectivity"`
	Pending      bool               `json:"pending"`
	View         View               `json:"view"`
	Booking      *booking.View      `json:"booking,omitempty"`
}
