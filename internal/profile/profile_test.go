package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeProfile(t, `{
		"name": "Ada Example",
		"headline": "Engineer",
		"email": "ada@example.com",
		"links": {"github": "https://github.com/ada"}
	}`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada Example", p.Name)
	assert.Equal(t, "Engineer", p.Headline)
	assert.Equal(t, "https://github.com/ada", p.Links["github"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "failed to read profile file")
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeProfile(t, `{"name":`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse profile file")
}

func TestLoadRequiresName(t *testing.T) {
	path := writeProfile(t, `{"name": "  ", "headline": "Engineer"}`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "has no name")
}

func TestGreeting(t *testing.T) {
	p := &Profile{Name: "Ada Example"}
	greeting := p.Greeting()
	assert.Contains(t, greeting, "Ada Example")
	assert.Contains(t, greeting, "book a meeting")
}

func TestDefaultMeetingReason(t *testing.T) {
	p := &Profile{Name: "Ada Example"}
	assert.Equal(t, "Meeting with Ada Example", p.DefaultMeetingReason())
}
