package assistant

import "strings"

// Router classifies a submitted input as a booking request or a general
// one. Matching is case-insensitive substring search against a fixed
// phrase set; any single hit is enough.
type Router struct {
	phrases []string // pre-lowercased
}

// NewRouter creates an intent router for the given booking phrases
func NewRouter(bookingPhrases []string) *Router {
	phrases := make([]string, 0, len(bookingPhrases))
	for _, p := range bookingPhrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Router{phrases: phrases}
}

// Classify returns the intent of the given text
func (r *Router) Classify(text string) Intent {
	lowered := strings.ToLower(text)
	for _, phrase := range r.phrases {
		if strings.Contains(lowered, phrase) {
			return IntentBooking
		}
	}
	return IntentGeneral
}
