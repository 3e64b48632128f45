package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Profile is the read-only record the site injects into every assistant
// session. It is loaded once at startup and never mutated by the engine;
// the session only reads display text from it.
type Profile struct {
	Name     string            `json:"name"`
	Headline string            `json:"headline,omitempty"`
	Email    string            `json:"email,omitempty"`
	Location string            `json:"location,omitempty"`
	Links    map[string]string `json:"links,omitempty"`
}

// Load reads and parses the profile JSON document at the given path
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("profile %s has no name", path)
	}

	return &p, nil
}

// Greeting returns the opening assistant message for a new session
func (p *Profile) Greeting() string {
	return fmt.Sprintf("Hi! I am your digital assistant. Ask me anything about %s, or book a meeting!", p.Name)
}

// DefaultMeetingReason returns the booking reason used when the visitor
// leaves the reason field empty
func (p *Profile) DefaultMeetingReason() string {
	return fmt.Sprintf("Meeting with %s", p.Name)
}
