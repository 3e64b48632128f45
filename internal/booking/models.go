package booking

import (
	"fmt"
	"strings"

	"github.com/mnoushir/site-assistant/internal/backend"
)

// Phase is the current step of the booking state machine
type Phase int

const (
	PhaseSelectSlot Phase = iota // picking a time slot
	PhaseFillForm                // slot chosen, filling contact details
	PhaseConfirmed               // booking accepted by the calendar backend
)

// String returns the wire name of the phase
func (p Phase) String() string {
	switch p {
	case PhaseSelectSlot:
		return "select_slot"
	case PhaseFillForm:
		return "fill_form"
	case PhaseConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// DisplaySlot is a bookable slot enriched with a human-readable local
// time range label
type DisplaySlot struct {
	backend.Slot
	Label string `json:"label"`
}

// DayGroup holds one local calendar day's slots, ascending by start time.
// Groups are ordered by first occurrence during grouping, which is
// chronological for the sorted input the backend provides.
type DayGroup struct {
	Day   string        `json:"day"`
	Slots []DisplaySlot `json:"slots"`
}

// Form is the visitor's in-progress booking form. Mutable field by field
// while the flow is in the fill-form phase.
type Form struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// View is a rendering snapshot of the flow state
type View struct {
	Phase    string                 `json:"phase"`
	Loading  bool                   `json:"loading"`
	Error    string                 `json:"error,omitempty"`
	Days     []DayGroup             `json:"days"`
	Selected *DisplaySlot           `json:"selected,omitempty"`
	Form     Form                   `json:"form"`
	Result   *backend.BookingResult `json:"result,omitempty"`
}

// ValidationError reports locally detected form problems. It never reaches
// the network: submission is refused before any booking call is made.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("please fill out all required fields: %s", strings.Join(e.Missing, ", "))
}
