package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, LoggingConfig{})

	log.WithField("file_id", 7).WithError(errors.New("boom")).Error("upload failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "upload failed", entry["msg"])
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, float64(7), entry["file_id"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		cfg       LoggingConfig
		wantDebug bool
	}{
		{name: "development", cfg: LoggingConfig{}, wantDebug: true},
		{name: "production", cfg: LoggingConfig{ProductionMode: true}, wantDebug: false},
		{name: "explicit level wins", cfg: LoggingConfig{ProductionMode: true, Level: "DEBUG"}, wantDebug: true},
		{name: "invalid level ignored", cfg: LoggingConfig{Level: "loud"}, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := newLogger(&buf, tt.cfg)
			log.Debug("debug line")
			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "debug line"))
		})
	}
}

func TestWithFieldsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger(&buf, LoggingConfig{})

	base.WithFields(map[string]interface{}{"user_id": 1}).Info("first")
	buf.Reset()
	base.Info("second")

	assert.NotContains(t, buf.String(), "user_id")
}
