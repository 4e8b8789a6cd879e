package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_DiscardOutput(t *testing.T) {
	logger := New(Config{Level: "warn", Output: "discard"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestFromContext(t *testing.T) {
	// GIVEN: a context without a logger
	// THEN: the default logger is returned
	assert.Same(t, Default(), FromContext(context.Background()))

	// GIVEN: a context carrying a request logger
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("request_id", "abc").Logger()
	ctx := WithLogger(context.Background(), &logger)

	// WHEN: logging through it
	FromContext(ctx).Info().Msg("hello")

	// THEN: the request fields are carried
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["request_id"])
	assert.Equal(t, "hello", line["message"])
}

func TestWithLogger_NilFallsBackToDefault(t *testing.T) {
	ctx := WithLogger(context.Background(), nil)
	assert.Same(t, Default(), FromContext(ctx))
}
