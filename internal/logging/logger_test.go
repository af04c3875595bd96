package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"silent", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestSubLoggerTagsSubsystem(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "debug").Sub("engine")

	log.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"subsystem":"engine"`)
	assert.Contains(t, out, `"message":"hello"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "warn")

	log.Debug().Msg("dropped")
	log.Info().Msg("dropped too")
	log.Warn().Msg("kept")

	lines := strings.TrimSpace(buf.String())
	assert.Equal(t, 1, strings.Count(lines, "\n")+1)
	assert.Contains(t, lines, "kept")
	assert.NotContains(t, lines, "dropped")
}

func TestSilentProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "silent")

	log.Error().Msg("nothing")
	assert.Empty(t, buf.String())
}
