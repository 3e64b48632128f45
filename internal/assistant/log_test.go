package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageLogAppendOrder(t *testing.T) {
	log := NewMessageLog()

	first := log.Append(OriginAssistant, "hello")
	second := log.Append(OriginUser, "hi")
	third := log.Append(OriginAssistant, "how can I help?")

	messages := log.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, second.ID, messages[1].ID)
	assert.Equal(t, third.ID, messages[2].ID)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, second.ID, third.ID)

	assert.False(t, messages[1].Time.Before(messages[0].Time))
	assert.False(t, messages[2].Time.Before(messages[1].Time))
}

func TestMessageLogCopyIsIndependent(t *testing.T) {
	log := NewMessageLog()
	log.Append(OriginUser, "original")

	messages := log.Messages()
	messages[0].Text = "mutated"

	fresh := log.Messages()
	assert.Equal(t, "original", fresh[0].Text)
}

func TestMessageLogLast(t *testing.T) {
	log := NewMessageLog()

	_, ok := log.Last()
	assert.False(t, ok)
	assert.Zero(t, log.Len())

	log.Append(OriginUser, "one")
	log.Append(OriginAssistant, "two")

	last, ok := log.Last()
	require.True(t, ok)
	assert.Equal(t, "two", last.Text)
	assert.Equal(t, OriginAssistant, last.Origin)
	assert.Equal(t, 2, log.Len())
}
