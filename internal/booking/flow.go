package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mnoushir/site-assistant/internal/backend"
	"github.com/mnoushir/site-assistant/internal/config"
	"github.com/mnoushir/site-assistant/pkg/logger"
)

var (
	// ErrBusy is returned when an operation would start a second network
	// call while one is already in flight
	ErrBusy = errors.New("booking operation already in progress")

	// ErrInvalidPhase is returned when an operation is invoked in a phase
	// that does not allow it
	ErrInvalidPhase = errors.New("operation not valid in current booking phase")

	// ErrUnknownSlot is returned when the selected slot is not in the
	// loaded availability set
	ErrUnknownSlot = errors.New("slot is not in the loaded availability")

	// ErrUnknownField is returned for form field names other than
	// name, email and reason
	ErrUnknownField = errors.New("unknown booking form field")

	// ErrDiscarded is returned when the flow instance was already
	// cancelled or closed
	ErrDiscarded = errors.New("booking flow was discarded")
)

const (
	loadFailedText    = "Could not load available time slots. Please try again later."
	bookingFailedText = "Failed to book the meeting. Please try again."
)

// CalendarAPI is the slice of the backend client the flow needs
type CalendarAPI interface {
	FetchAvailability(ctx context.Context) ([]backend.Slot, error)
	BookSlot(ctx context.Context, booking backend.BookingRequest) (*backend.BookingResult, error)
}

// Flow is the meeting booking state machine: select a slot, fill the form,
// confirm. One instance lives for one booking attempt and is discarded on
// cancel or close. An overlay loading flag and error string exist alongside
// the phase.
//
// State is mutated under f.mu; the notify and emit callbacks are always
// invoked after the mutex is released so the owning session can take its
// own locks inside them.
type Flow struct {
	client        CalendarAPI
	cfg           config.BookingConfig
	defaultReason string
	loc           *time.Location
	notify        func()       // state changed, re-render
	emit          func(string) // append an assistant message to the session log
	logger        *logger.Logger

	mu        sync.Mutex
	phase     Phase
	loading   bool
	errMsg    string
	days      []DayGroup
	selected  *DisplaySlot
	form      Form
	result    *backend.BookingResult
	discarded bool
}

// NewFlow creates a booking flow in the slot-selection phase. The caller
// starts the availability fetch with LoadAvailability immediately after
// construction.
func NewFlow(client CalendarAPI, cfg config.BookingConfig, defaultReason string, loc *time.Location, notify func(), emit func(string), log *logger.Logger) *Flow {
	if loc == nil {
		loc = time.Local
	}
	if notify == nil {
		notify = func() {}
	}
	if emit == nil {
		emit = func(string) {}
	}
	return &Flow{
		client:        client,
		cfg:           cfg,
		defaultReason: defaultReason,
		loc:           loc,
		notify:        notify,
		emit:          emit,
		logger:        log.Named("booking-flow"),
		phase:         PhaseSelectSlot,
	}
}

// LoadAvailability fetches the open slots from the calendar backend and
// groups them by day. A fetch failure keeps the phase at slot selection
// with an empty slot set and a retryable error.
func (f *Flow) LoadAvailability(ctx context.Context) error {
	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		return ErrDiscarded
	}
	if f.loading {
		f.mu.Unlock()
		return ErrBusy
	}
	if f.phase != PhaseSelectSlot {
		f.mu.Unlock()
		return ErrInvalidPhase
	}
	f.loading = true
	f.errMsg = ""
	f.mu.Unlock()
	f.notify()

	go f.fetchAvailability(ctx)
	return nil
}

func (f *Flow) fetchAvailability(ctx context.Context) {
	slots, err := f.client.FetchAvailability(ctx)

	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		f.logger.Debug("Dropping availability response for discarded flow")
		return
	}
	f.loading = false
	if err != nil {
		f.errMsg = loadFailedText
		f.days = nil
		f.logger.Warn("Failed to load availability", logger.Error(err))
	} else {
		f.days = GroupSlotsByDay(slots, f.cfg.DayLabelLayout, f.cfg.TimeLabelLayout, f.loc)
		f.logger.Info("Availability loaded",
			logger.Int("slot_count", len(slots)),
			logger.Int("day_count", len(f.days)))
	}
	f.mu.Unlock()
	f.notify()
}

// SelectSlot records the slot starting at the given time and moves the flow
// to the form phase. Valid only during slot selection, and only for a slot
// in the currently loaded set.
func (f *Flow) SelectSlot(start time.Time) error {
	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		return ErrDiscarded
	}
	if f.phase != PhaseSelectSlot {
		f.mu.Unlock()
		return ErrInvalidPhase
	}
	if f.loading {
		f.mu.Unlock()
		return ErrBusy
	}

	var found *DisplaySlot
	for i := range f.days {
		for j := range f.days[i].Slots {
			if f.days[i].Slots[j].Start.Equal(start) {
				slot := f.days[i].Slots[j]
				found = &slot
				break
			}
		}
	}
	if found == nil {
		f.mu.Unlock()
		return ErrUnknownSlot
	}

	f.selected = found
	f.phase = PhaseFillForm
	f.errMsg = ""
	f.mu.Unlock()

	f.logger.Debug("Slot selected", logger.Time("start", found.Start))
	f.notify()
	return nil
}

// UpdateField mutates one field of the in-progress form. Valid only in the
// form phase; never changes the phase.
func (f *Flow) UpdateField(name, value string) error {
	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		return ErrDiscarded
	}
	if f.phase != PhaseFillForm {
		f.mu.Unlock()
		return ErrInvalidPhase
	}

	switch name {
	case "name":
		f.form.Name = value
	case "email":
		f.form.Email = value
	case "reason":
		f.form.Reason = value
	default:
		f.mu.Unlock()
		return ErrUnknownField
	}
	f.mu.Unlock()
	f.notify()
	return nil
}

// Submit validates the form and posts the booking. Validation failures are
// returned as a *ValidationError without any network call; a booking
// failure keeps the form phase so the visitor can retry without
// re-selecting a slot.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		return ErrDiscarded
	}
	if f.phase != PhaseFillForm {
		f.mu.Unlock()
		return ErrInvalidPhase
	}
	if f.loading {
		f.mu.Unlock()
		return ErrBusy
	}

	var missing []string
	if f.selected == nil {
		missing = append(missing, "slot")
	}
	if strings.TrimSpace(f.form.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(f.form.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		vErr := &ValidationError{Missing: missing}
		f.errMsg = vErr.Error()
		f.mu.Unlock()
		f.notify()
		return vErr
	}

	reason := strings.TrimSpace(f.form.Reason)
	if reason == "" {
		reason = f.defaultReason
	}
	req := backend.BookingRequest{
		StartTime: f.selected.Start,
		EndTime:   f.selected.End,
		Name:      f.form.Name,
		Email:     f.form.Email,
		Reason:    reason,
	}
	f.loading = true
	f.errMsg = ""
	f.mu.Unlock()
	f.notify()

	go f.submitBooking(ctx, req)
	return nil
}

func (f *Flow) submitBooking(ctx context.Context, req backend.BookingRequest) {
	result, err := f.client.BookSlot(ctx, req)

	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		f.logger.Debug("Dropping booking response for discarded flow")
		return
	}
	f.loading = false
	if err != nil {
		f.errMsg = bookingFailedText
		var netErr *backend.NetworkError
		if errors.As(err, &netErr) && netErr.ServerMessage != "" {
			f.errMsg = netErr.ServerMessage
		}
		f.logger.Warn("Booking submission failed", logger.Error(err))
	} else {
		f.result = result
		f.phase = PhaseConfirmed
		f.logger.Info("Booking confirmed", logger.String("event_id", result.EventID))
	}
	f.mu.Unlock()
	f.notify()
}

// Cancel discards the flow without producing a message. Valid from any
// state. Late network responses for a cancelled flow are dropped.
func (f *Flow) Cancel() {
	f.mu.Lock()
	f.discarded = true
	f.mu.Unlock()
	f.logger.Debug("Booking flow cancelled")
}

// Close discards the flow; if the booking was confirmed it first emits one
// summarizing assistant message into the owning session's log.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		return
	}
	f.discarded = true

	var summary string
	if f.phase == PhaseConfirmed && f.result != nil && f.selected != nil {
		day := f.selected.Start.In(f.loc).Format(f.cfg.DayLabelLayout)
		summary = fmt.Sprintf(
			"Your meeting is scheduled for %s (%s). A confirmation has been sent to %s. Booking reference: %s.",
			day, f.selected.Label, f.result.Email, f.result.EventID)
	}
	f.mu.Unlock()

	if summary != "" {
		f.emit(summary)
	}
	f.logger.Debug("Booking flow closed", logger.Bool("confirmed", summary != ""))
}

// Loading reports whether a flow network operation is in flight
func (f *Flow) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading && !f.discarded
}

// CurrentPhase returns the current phase
func (f *Flow) CurrentPhase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Snapshot returns a rendering copy of the flow state
func (f *Flow) Snapshot() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	view := View{
		Phase:   f.phase.String(),
		Loading: f.loading,
		Error:   f.errMsg,
		Days:    make([]DayGroup, len(f.days)),
		Form:    f.form,
		Result:  f.result,
	}
	copy(view.Days, f.days)
	if f.selected != nil {
		slot := *f.selected
		view.Selected = &slot
	}
	return view
}
