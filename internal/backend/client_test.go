package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnoushir/site-assistant/internal/config"
	"github.com/mnoushir/site-assistant/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.BackendConfig{
		BaseURL:               baseURL,
		RequestTimeoutSeconds: 5,
		HealthPath:            "/",
		ChatPath:              "/api/chat",
		AvailabilityPath:      "/api/calendar/availability",
		BookingPath:           "/api/calendar/book",
		ConfigErrorMarker:     "not configured",
	}, logger.NewNop())
}

func TestCheckHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Write([]byte(`{"message":"ok"}`))
		}))
		defer srv.Close()

		health := newTestClient(srv.URL).CheckHealth(context.Background())
		assert.True(t, health.Connected)
		assert.Empty(t, health.Detail)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		health := newTestClient(srv.URL).CheckHealth(context.Background())
		assert.False(t, health.Connected)
		assert.Equal(t, "assistant backend responded with status 503", health.Detail)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		health := newTestClient(srv.URL).CheckHealth(context.Background())
		assert.False(t, health.Connected)
		assert.Equal(t, "assistant backend is unreachable", health.Detail)
	})
}

func TestSendChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what do you do?", req["content"])

		json.NewEncoder(w).Encode(map[string]string{"content": "I build things.", "agent": "profile"})
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).SendChat(context.Background(), "what do you do?")
	require.NoError(t, err)
	assert.Equal(t, "I build things.", reply)
}

func TestSendChatConfigErrorMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "API key is not configured"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendChat(context.Background(), "hello")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "API key is not configured", cfgErr.Detail)
}

func TestSendChatServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"detail": "upstream model error"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendChat(context.Background(), "hello")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusBadGateway, netErr.StatusCode)
	assert.Equal(t, "upstream model error", netErr.ServerMessage)
}

func TestSendChatTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).SendChat(context.Background(), "hello")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Zero(t, netErr.StatusCode)
	assert.Error(t, netErr.Err)
}

func TestFetchAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/calendar/availability", r.URL.Path)
		w.Write([]byte(`{"available_slots":[
			{"start":"2026-09-01T09:00:00Z","end":"2026-09-01T09:30:00Z"},
			{"start":"2026-09-01T10:00:00Z","end":"2026-09-01T10:30:00Z"}
		]}`))
	}))
	defer srv.Close()

	slots, err := newTestClient(srv.URL).FetchAvailability(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), slots[0].Start.UTC())
	assert.True(t, slots[0].Start.Before(slots[1].Start))
}

func TestFetchAvailabilityServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "calendar offline"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchAvailability(context.Background())
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "calendar offline", netErr.ServerMessage)
}

func TestBookSlot(t *testing.T) {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/calendar/book", r.URL.Path)

		var req BookingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.StartTime.Equal(start))
		assert.Equal(t, "Ada", req.Name)
		assert.Equal(t, "ada@example.com", req.Email)
		assert.Equal(t, "Intro call", req.Reason)

		json.NewEncoder(w).Encode(BookingResult{
			EventID:   "evt-42",
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Email:     req.Email,
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).BookSlot(context.Background(), BookingRequest{
		StartTime: start,
		EndTime:   end,
		Name:      "Ada",
		Email:     "ada@example.com",
		Reason:    "Intro call",
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-42", result.EventID)
	assert.Equal(t, "ada@example.com", result.Email)
}

func TestBookSlotCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "Slot already booked"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).BookSlot(context.Background(), BookingRequest{})
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusConflict, netErr.StatusCode)
	assert.Equal(t, "Slot already booked", netErr.ServerMessage)
}
