package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mnoushir/site-assistant/internal/config"
	"github.com/mnoushir/site-assistant/pkg/logger"
)

// Client handles HTTP requests to the assistant backend (chat and calendar
// endpoints). All calls share one config-driven timeout; a timeout or any
// transport failure surfaces as a *NetworkError.
type Client struct {
	config     config.BackendConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new backend API client
func NewClient(cfg config.BackendConfig, logger *logger.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		logger: logger.Named("backend-client"),
	}
}

// CheckHealth probes the backend's root endpoint. Any 2xx response means
// healthy; everything else is reported as a disconnected status with a
// reason distinguishing "responded but unhealthy" from "unreachable".
func (c *Client) CheckHealth(ctx context.Context) Health {
	url := c.config.BaseURL + c.config.HealthPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Health{Connected: false, Detail: "assistant backend is unreachable"}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Health check failed, backend unreachable", logger.Error(err))
		return Health{Connected: false, Detail: "assistant backend is unreachable"}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Health check returned non-2xx status", logger.Int("status_code", resp.StatusCode))
		return Health{
			Connected: false,
			Detail:    fmt.Sprintf("assistant backend responded with status %d", resp.StatusCode),
		}
	}

	c.logger.Debug("Health check succeeded", logger.Int("status_code", resp.StatusCode))
	return Health{Connected: true}
}

// SendChat posts the visitor's text to the chat endpoint and returns the
// assistant's reply content. Failures are classified most specific first:
// a body carrying the configured misconfiguration marker yields a
// *ConfigError, anything else a *NetworkError.
func (c *Client) SendChat(ctx context.Context, text string) (string, error) {
	url := c.config.BaseURL + c.config.ChatPath

	body, err := json.Marshal(chatRequest{Content: text})
	if err != nil {
		return "", &NetworkError{Err: fmt.Errorf("failed to encode chat request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Chat request failed", logger.Error(err))
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{StatusCode: resp.StatusCode, Err: err}
	}

	// Misconfiguration marker takes priority over the status code
	if c.config.ConfigErrorMarker != "" && strings.Contains(string(respBody), c.config.ConfigErrorMarker) {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		detail := eb.text()
		if detail == "" {
			detail = string(respBody)
		}
		c.logger.Error("Backend reported misconfiguration",
			logger.Int("status_code", resp.StatusCode),
			logger.String("detail", detail))
		return "", &ConfigError{Detail: detail}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		c.logger.Warn("Chat endpoint returned non-2xx status",
			logger.Int("status_code", resp.StatusCode))
		return "", &NetworkError{StatusCode: resp.StatusCode, ServerMessage: eb.text()}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &NetworkError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode chat response: %w", err)}
	}

	return parsed.Content, nil
}

// FetchAvailability retrieves the open meeting slots from the calendar
// collaborator, in the order the backend provides them (ascending by start)
func (c *Client) FetchAvailability(ctx context.Context) ([]Slot, error) {
	url := c.config.BaseURL + c.config.AvailabilityPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Availability request failed", logger.Error(err))
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		c.logger.Warn("Availability endpoint returned non-2xx status",
			logger.Int("status_code", resp.StatusCode))
		return nil, &NetworkError{StatusCode: resp.StatusCode, ServerMessage: eb.text()}
	}

	var parsed availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &NetworkError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode availability response: %w", err)}
	}

	c.logger.Debug("Fetched availability", logger.Int("slot_count", len(parsed.AvailableSlots)))
	return parsed.AvailableSlots, nil
}

// BookSlot submits a booking to the calendar collaborator. On a non-2xx
// response the server-provided message, if any, is carried on the returned
// *NetworkError so it can be shown to the visitor.
func (c *Client) BookSlot(ctx context.Context, booking BookingRequest) (*BookingResult, error) {
	url := c.config.BaseURL + c.config.BookingPath

	body, err := json.Marshal(booking)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("failed to encode booking request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Booking request failed", logger.Error(err))
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		c.logger.Warn("Booking endpoint returned non-2xx status",
			logger.Int("status_code", resp.StatusCode),
			logger.String("server_message", eb.text()))
		return nil, &NetworkError{StatusCode: resp.StatusCode, ServerMessage: eb.text()}
	}

	var result BookingResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &NetworkError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode booking response: %w", err)}
	}

	c.logger.Info("Booking confirmed",
		logger.String("event_id", result.EventID),
		logger.Time("start", result.StartTime))
	return &result, nil
}
