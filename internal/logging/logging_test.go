package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSON(t *testing.T) {
	t.Cleanup(InitDefault)

	var buf bytes.Buffer
	Init(Options{Level: "warn", Format: FormatJSON, Output: &buf})

	log.Info().Msg("hidden")
	log.Warn().Str("queue", "redis").Msg("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "visible", line["message"])
	assert.Equal(t, "redis", line["queue"])
	assert.Equal(t, "warn", line["level"])
}

func TestInit_UnknownLevel(t *testing.T) {
	t.Cleanup(InitDefault)

	var buf bytes.Buffer
	Init(Options{Level: "loud", Format: FormatJSON, Output: &buf})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}

func TestPrintfLogger(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf)

	NewPrintfLogger(zlog, zerolog.ErrorLevel).Printf("fetch failed: %s\n", "boom")
	ContextPrintfLogger{NewPrintfLogger(zlog, zerolog.DebugLevel)}.Printf(context.Background(), "pool %d", 3)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"message":"fetch failed: boom"`)
	assert.Contains(t, string(lines[0]), `"level":"error"`)
	assert.Contains(t, string(lines[1]), `"message":"pool 3"`)
}
