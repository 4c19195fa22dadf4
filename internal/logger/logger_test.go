package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	Info("server started", "port", 8000)

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "server started")
	assert.Contains(t, out, "port=8000")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")

	Info("session token delivered", "session_key", "14155550100")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "session token delivered", record["msg"])
	assert.Equal(t, "14155550100", record["session_key"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")

	Debug("hidden")
	Info("also hidden")
	Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestSetLevel_IgnoresInvalid(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	SetLevel("NOISY")
	Info("still logged")

	assert.Contains(t, buf.String(), "still logged")
}

func TestWith_BindsAttributes(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	log := With("session_key", "14155550100")
	log.Info("reconnecting", "attempt", 2)

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "session_key=14155550100")
	assert.Contains(t, line, "attempt=2")
}
