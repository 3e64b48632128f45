package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"debug json", Config{Level: "debug", Format: "json"}, false},
		{"warn console", Config{Level: "warn", Format: "console"}, false},
		{"unknown level", Config{Level: "verbose"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	log := NewNop()

	// None of these should panic or produce output
	log.Debug("debug", String("k", "v"))
	log.Info("info", Int("n", 1), Bool("ok", true))
	log.Warn("warn", Any("payload", map[string]int{"a": 1}))
	log.Error("error", Error(errors.New("boom")))

	named := log.Named("sub").With(String("component", "test"))
	named.Info("still silent")

	assert.NoError(t, log.Sync())
}
