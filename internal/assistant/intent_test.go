package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testBookingPhrases = []string{
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

func TestClassify(t *testing.T) {
	router := NewRouter(testBookingPhrases)

	tests := []struct {
		name string
		text string
		want Intent
	}{
		{"plain question", "what projects have you worked on?", IntentGeneral},
		{"booking phrase alone", "book a meeting", IntentBooking},
		{"booking phrase embedded", "hey, can I book a meeting with you next week?", IntentBooking},
		{"mixed case", "I'd like to BOOK A MEETING", IntentBooking},
		{"schedule variant", "let's schedule time to talk", IntentBooking},
		{"mentions booking a table", "where can I book a table nearby?", IntentGeneral},
		{"mentions meetings without a phrase", "do you enjoy meetings?", IntentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, router.Classify(tt.text))
		})
	}
}

func TestNewRouterSkipsBlankPhrases(t *testing.T) {
	router := NewRouter([]string{"  ", "", "Book A Demo"})

	assert.Equal(t, IntentBooking, router.Classify("can we book a demo?"))
	assert.Equal(t, IntentGeneral, router.Classify("hello there"))
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "general", IntentGeneral.String())
	assert.Equal(t, "booking", IntentBooking.String())
}
