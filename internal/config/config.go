package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server    ServerConfig    `toml:"server"`    // HTTP server settings
	Logging   LoggingConfig   `toml:"logging"`   // Application logging settings
	Backend   BackendConfig   `toml:"backend"`   // Assistant backend collaborator settings
	Assistant AssistantConfig `toml:"assistant"` // Assistant session settings
	Booking   BookingConfig   `toml:"booking"`   // Meeting booking settings
	Profile   ProfileConfig   `toml:"profile"`   // Profile data source settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	AdditionalPorts    []int    `toml:"additional_ports"`      // Additional HTTP ports to listen on (useful for multiple interfaces)
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory to serve the site bundle from (e.g., "www")
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// BackendConfig contains settings for the remote assistant backend
// (chat + calendar collaborator, not owned by this service)
type BackendConfig struct {
	BaseURL               string `toml:"base_url"`                // Base URL of the assistant backend (e.g., http://localhost:8000)
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"` // HTTP request timeout in seconds for all backend calls
	HealthPath            string `toml:"health_path"`             // Path probed by the connectivity monitor (default: /)
	ChatPath              string `toml:"chat_path"`               // Path for chat requests (default: /api/chat)
	AvailabilityPath      string `toml:"availability_path"`       // Path for calendar availability (default: /api/calendar/availability)
	BookingPath           string `toml:"booking_path"`            // Path for calendar bookings (default: /api/calendar/book)
	ConfigErrorMarker     string `toml:"config_error_marker"`     // Marker substring in an error body denoting backend misconfiguration
}

// AssistantConfig contains assistant session settings
type AssistantConfig struct {
	BookingPhrases    []string `toml:"booking_phrases"`     // Phrases that route an input into the booking flow (case-insensitive substring match)
	SessionTTLMinutes int      `toml:"session_ttl_minutes"` // Idle minutes after which a session is reaped (0 = default)
	MaxSessions       int      `toml:"max_sessions"`        // Maximum number of concurrently open sessions (0 = default)
}

// BookingConfig contains meeting booking settings
type BookingConfig struct {
	DayLabelLayout  string `toml:"day_label_layout"`  // Go time layout for the day bucket label
	TimeLabelLayout string `toml:"time_label_layout"` // Go time layout for slot start/end times
}

// ProfileConfig contains profile data source settings
type ProfileConfig struct {
	Path string `toml:"path"` // Path to the profile JSON document
}

// defaultBookingPhrases is used when the config omits assistant.booking_phrases
var defaultBookingPhrases = []string{
	"book meeting",
	"book a meeting",
	"schedule meeting",
	"schedule a meeting",
	"schedule appointment",
	"book a call",
	"schedule a call",
	"schedule time",
	"book appointment",
}

// Load loads configuration from the specified TOML file
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// LoadWithFallback attempts to load configuration from the preferred path,
// falling back to the standard locations
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// applyDefaults fills zero-valued fields with working defaults
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Backend.RequestTimeoutSeconds == 0 {
		c.Backend.RequestTimeoutSeconds = 15
	}
	if c.Backend.HealthPath == "" {
		c.Backend.HealthPath = "/"
	}
	if c.Backend.ChatPath == "" {
		c.Backend.ChatPath = "/api/chat"
	}
	if c.Backend.AvailabilityPath == "" {
		c.Backend.AvailabilityPath = "/api/calendar/availability"
	}
	if c.Backend.BookingPath == "" {
		c.Backend.BookingPath = "/api/calendar/book"
	}
	if c.Backend.ConfigErrorMarker == "" {
		c.Backend.ConfigErrorMarker = "not configured"
	}
	if len(c.Assistant.BookingPhrases) == 0 {
		c.Assistant.BookingPhrases = defaultBookingPhrases
	}
	if c.Assistant.SessionTTLMinutes == 0 {
		c.Assistant.SessionTTLMinutes = 30
	}
	if c.Assistant.MaxSessions == 0 {
		c.Assistant.MaxSessions = 256
	}
	if c.Booking.DayLabelLayout == "" {
		c.Booking.DayLabelLayout = "Monday, January 2, 2006"
	}
	if c.Booking.TimeLabelLayout == "" {
		c.Booking.TimeLabelLayout = "3:04 PM"
	}
	if c.Profile.Path == "" {
		c.Profile.Path = "profile.json"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.ValidateServer(); err != nil {
		return err
	}
	if err := c.ValidateBackend(); err != nil {
		return err
	}
	if err := c.ValidateAssistant(); err != nil {
		return err
	}

	// Validate logging config
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}

// ValidateServer validates the server configuration
func (c *Config) ValidateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	for _, port := range c.Server.AdditionalPorts {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid additional port: %d", port)
		}
		if port == c.Server.Port {
			return fmt.Errorf("additional port %d duplicates the primary port", port)
		}
	}
	return nil
}

// ValidateBackend validates the backend configuration
func (c *Config) ValidateBackend() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url cannot be empty")
	}
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend base_url is not a valid URL: %s", c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("backend request_timeout_seconds must be greater than 0: %d", c.Backend.RequestTimeoutSeconds)
	}
	for name, path := range map[string]string{
		"health_path":       c.Backend.HealthPath,
		"chat_path":         c.Backend.ChatPath,
		"availability_path": c.Backend.AvailabilityPath,
		"booking_path":      c.Backend.BookingPath,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("backend %s must start with /: %s", name, path)
		}
	}
	return nil
}

// ValidateAssistant validates the assistant configuration
func (c *Config) ValidateAssistant() error {
	for i, phrase := range c.Assistant.BookingPhrases {
		if strings.TrimSpace(phrase) == "" {
			return fmt.Errorf("booking phrase #%d is empty", i+1)
		}
	}
	if c.Assistant.SessionTTLMinutes < 0 {
		return fmt.Errorf("session_ttl_minutes must be 0 or greater: %d", c.Assistant.SessionTTLMinutes)
	}
	if c.Assistant.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must be 0 or greater: %d", c.Assistant.MaxSessions)
	}
	return nil
}
