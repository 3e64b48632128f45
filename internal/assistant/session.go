package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/mnoushir/site-assistant/internal/backend"
	"github.com/mnoushir/site-assistant/internal/booking"
	"github.com/mnoushir/site-assistant/internal/config"
	"github.com/mnoushir/site-assistant/internal/profile"
	"github.com/mnoushir/site-assistant/pkg/logger"
)

var (
	// ErrClosed is returned for operations on a closed session
	ErrClosed = errors.New("session is closed")

	// ErrBusy is returned while a chat or booking network operation is in
	// flight; concurrent submissions are rejected, not queued
	ErrBusy = errors.New("a request is already in progress")

	// ErrEmptyInput is returned for blank submissions
	ErrEmptyInput = errors.New("input is empty")

	// ErrBookingActive is returned for chat submissions while the booking
	// surface is open
	ErrBookingActive = errors.New("booking flow is active")

	// ErrNoBooking is returned for booking operations without an active flow
	ErrNoBooking = errors.New("no active booking flow")
)

// Fixed assistant-facing texts
const (
	bookingAckText   = "Sure! Let's get your meeting scheduled. Pick a time slot that works for you."
	configErrorText  = "The assistant backend isn't fully configured yet. Please contact the site administrator."
	offlineNewText   = "I'm having trouble reaching my backend right now. Please try again in a moment."
	offlineKnownText = "I still can't reach my backend. Please check your connection and try again in a moment."
	emptyReplyText   = "Sorry, I don't have an answer for that right now."

	configErrorDetail = "assistant backend is not configured"
	unreachableDetail = "assistant backend is unreachable"
)

// BackendAPI is the slice of the backend client the session uses
type BackendAPI interface {
	CheckHealth(ctx context.Context) backend.Health
	SendChat(ctx context.Context, text string) (string, error)
	booking.CalendarAPI
}

// Session is one activation-to-deactivation lifetime of the assistant
// surface. It owns the message log and connectivity status, routes
// submitted inputs, and hosts at most one booking flow at a time.
//
// All state lives behind s.mu. Flow callbacks (notify, emit) re-enter the
// session from goroutines that hold no locks, so session methods may read
// flow state under s.mu but must not invoke flow operations that fire
// callbacks while holding it.
type Session struct {
	id         string
	profile    *profile.Profile
	client     BackendAPI
	router     *Router
	bookingCfg config.BookingConfig
	publisher  Publisher
	logger     *logger.Logger
	loc        *time.Location

	mu           sync.Mutex
	log          *MessageLog
	connectivity ConnectivityStatus
	pendingChat  bool
	flow         *booking.Flow
	view         View
	closed       bool
	lastActivity time.Time
}

// NewSession creates a session with the opening greeting already in the
// log. Call Activate to run the initial health check.
func NewSession(id string, prof *profile.Profile, client BackendAPI, router *Router, bookingCfg config.BookingConfig, publisher Publisher, log *logger.Logger) *Session {
	s := &Session{
		id:           id,
		profile:      prof,
		client:       client,
		router:       router,
		bookingCfg:   bookingCfg,
		publisher:    publisher,
		logger:       log.Named("session").With(logger.String("session_id", id)),
		loc:          time.Local,
		log:          NewMessageLog(),
		connectivity: ConnectivityStatus{Connected: true},
		view:         ViewChat,
		lastActivity: time.Now().UTC(),
	}
	s.log.Append(OriginAssistant, prof.Greeting())
	return s
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Activate probes the backend asynchronously and publishes the resulting
// connectivity status. Invoked once when the session surface opens; may be
// re-invoked manually.
func (s *Session) Activate(ctx context.Context) {
	probeCtx := context.WithoutCancel(ctx)
	go func() {
		health := s.client.CheckHealth(probeCtx)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			s.logger.Debug("Dropping health check result for closed session")
			return
		}
		s.connectivity = ConnectivityStatus{Connected: health.Connected, Detail: health.Detail}
		status := s.connectivity
		s.mu.Unlock()

		s.logger.Info("Health check completed",
			logger.Bool("connected", status.Connected),
			logger.String("detail", status.Detail))
		s.publish(EventConnectivity, map[string]any{"connectivity": status})
	}()
}

// Submit handles one visitor input: the user message is appended first,
// then the input is routed either to the chat backend or into a new
// booking flow. Exactly one submission may be in flight at a time.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.view == ViewBooking {
		s.mu.Unlock()
		return ErrBookingActive
	}
	if s.pendingLocked() {
		s.mu.Unlock()
		return ErrBusy
	}
	s.lastActivity = time.Now().UTC()

	// The user message is always appended before any routing
	userMsg := s.log.Append(OriginUser, text)
	intent := s.router.Classify(text)

	var flow *booking.Flow
	var ackMsg Message
	if intent == IntentBooking {
		ackMsg = s.log.Append(OriginAssistant, bookingAckText)
		flow = booking.NewFlow(
			s.client,
			s.bookingCfg,
			s.profile.DefaultMeetingReason(),
			s.loc,
			s.notifyBooking,
			s.emitAssistant,
			s.logger,
		)
		s.flow = flow
		s.view = ViewBooking
	} else {
		s.pendingChat = true
	}
	s.mu.Unlock()

	s.publish(EventMessage, map[string]any{"message": userMsg})
	s.logger.Debug("Input routed",
		logger.String("intent", intent.String()),
		logger.Int("length", len(text)))

	if intent == IntentBooking {
		s.publish(EventMessage, map[string]any{"message": ackMsg})
		s.publish(EventBooking, map[string]any{"view": ViewBooking, "booking": flow.Snapshot()})
		// Entry fetch begins immediately
		return flow.LoadAvailability(context.WithoutCancel(ctx))
	}

	s.publish(EventPending, map[string]any{"pending": true})
	go s.sendChat(context.WithoutCancel(ctx), text)
	return nil
}

// sendChat runs the chat exchange and absorbs every failure into exactly
// one assistant reply, so the session never ends a turn without one.
func (s *Session) sendChat(ctx context.Context, text string) {
	reply, err := s.client.SendChat(ctx, text)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("Dropping chat response for closed session")
		return
	}
	s.pendingChat = false

	var replyText string
	var configErr *backend.ConfigError
	switch {
	case err == nil:
		replyText = reply
		if strings.TrimSpace(replyText) == "" {
			replyText = emptyReplyText
		}
		// A successful exchange clears any stale disconnected banner
		s.connectivity = ConnectivityStatus{Connected: true}

	case errors.As(err, &configErr):
		replyText = configErrorText
		s.connectivity = ConnectivityStatus{Connected: false, Detail: configErrorDetail}
		s.logger.Error("Chat failed: backend misconfigured", logger.Error(err))

	default:
		// Wording depends on whether we already knew the backend was down
		if s.connectivity.Connected {
			replyText = offlineNewText
		} else {
			replyText = offlineKnownText
		}
		s.connectivity = ConnectivityStatus{Connected: false, Detail: unreachableDetail}
		s.logger.Warn("Chat failed: backend unavailable", logger.Error(err))
	}

	msg := s.log.Append(OriginAssistant, replyText)
	status := s.connectivity
	s.mu.Unlock()

	s.publish(EventMessage, map[string]any{"message": msg})
	s.publish(EventConnectivity, map[string]any{"connectivity": status})
	s.publish(EventPending, map[string]any{"pending": false})
}

// SelectSlot forwards a slot selection to the active booking flow
func (s *Session) SelectSlot(start time.Time) error {
	flow, err := s.activeFlow()
	if err != nil {
		return err
	}
	return flow.SelectSlot(start)
}

// UpdateBookingField forwards a form field change to the active booking flow
func (s *Session) UpdateBookingField(name, value string) error {
	flow, err := s.activeFlow()
	if err != nil {
		return err
	}
	return flow.UpdateField(name, value)
}

// SubmitBooking forwards a booking submission to the active booking flow
func (s *Session) SubmitBooking(ctx context.Context) error {
	flow, err := s.activeFlow()
	if err != nil {
		return err
	}
	return flow.Submit(context.WithoutCancel(ctx))
}

// RetryAvailability re-runs the availability fetch after a failure
func (s *Session) RetryAvailability(ctx context.Context) error {
	flow, err := s.activeFlow()
	if err != nil {
		return err
	}
	return flow.LoadAvailability(context.WithoutCancel(ctx))
}

// CancelBooking discards the active booking flow without producing a
// message and returns the session to the chat surface
func (s *Session) CancelBooking() error {
	flow, err := s.activeFlow()
	if err != nil {
		return err
	}
	flow.Cancel()
	s.dropFlow()
	return nil
}

// CloseBooking closes the active booking flow; a confirmed booking emits
// one summarizing assistant message before the flow is discarded
func (s *Session) CloseBooking() error {
	flow, err := s.activeFlow()
	if err != nil {
		return err
	}
	flow.Close()
	s.dropFlow()
	return nil
}

// Snapshot returns a consistent rendering copy of the session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:           s.id,
		Messages:     s.log.Messages(),
		Connectivity: s.connectivity,
		Pending:      s.pendingLocked(),
		View:         s.view,
	}
	flow := s.flow
	s.mu.Unlock()

	if flow != nil {
		view := flow.Snapshot()
		snap.Booking = &view
	}
	return snap
}

// Pending reports whether a chat or booking network operation is in flight
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

// Connectivity returns the last known backend connectivity status
func (s *Session) Connectivity() ConnectivityStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectivity
}

// Messages returns a copy of the session's message log
func (s *Session) Messages() []Message {
	return s.log.Messages()
}

// LastActivity returns the time of the last visitor-initiated operation
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Close marks the session closed. In-flight responses are not aborted;
// their results are discarded when they arrive.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	flow := s.flow
	s.flow = nil
	s.mu.Unlock()

	if flow != nil {
		flow.Cancel()
	}
	s.publish(EventClosed, map[string]any{})
	s.logger.Info("Session closed")
}

// Closed reports whether the session has been closed
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// pendingLocked must be called with s.mu held. Reading flow.Loading takes
// the flow mutex, which is always safe under s.mu because the flow never
// invokes session callbacks while holding its own lock.
func (s *Session) pendingLocked() bool {
	if s.pendingChat {
		return true
	}
	return s.flow != nil && s.flow.Loading()
}

// activeFlow returns the current booking flow, updating the activity stamp
func (s *Session) activeFlow() (*booking.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.flow == nil {
		return nil, ErrNoBooking
	}
	s.lastActivity = time.Now().UTC()
	return s.flow, nil
}

// dropFlow releases the flow instance and returns to the chat surface
func (s *Session) dropFlow() {
	s.mu.Lock()
	s.flow = nil
	s.view = ViewChat
	s.mu.Unlock()
	s.publish(EventBooking, map[string]any{"view": ViewChat})
}

// notifyBooking is the flow's re-render callback
func (s *Session) notifyBooking() {
	s.mu.Lock()
	flow := s.flow
	view := s.view
	s.mu.Unlock()

	if flow == nil {
		return
	}
	s.publish(EventBooking, map[string]any{"view": view, "booking": flow.Snapshot()})
}

// emitAssistant is the flow's message callback (booking summary)
func (s *Session) emitAssistant(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	msg := s.log.Append(OriginAssistant, text)
	s.mu.Unlock()
	s.publish(EventMessage, map[string]any{"message": msg})
}

// publish forwards an event to the rendering layer, if any is attached
func (s *Session) publish(eventType string, data map[string]any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(s.id, eventType, data)
}
