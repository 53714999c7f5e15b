package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string, redact bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Configure(level, redact)
	return &buf
}

func TestLog_RedactsEmailFields(t *testing.T) {
	buf := capture(t, "info", true)

	Info("alert sent", "to", "jane.doe@example.com", "item", "wheelchair for bob@example.org")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "ja***@example.com", entry["to"])
	assert.Equal(t, "wheelchair for bo***@example.org", entry["item"])
}

func TestLog_RespectsLevel(t *testing.T) {
	buf := capture(t, "warn", true)

	Info("hidden")
	Debug("hidden")
	Warn("shown")

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestLog_NoRedaction(t *testing.T) {
	buf := capture(t, "debug", false)

	Debug("raw", "submitter_email", "jane@example.com")

	assert.Contains(t, buf.String(), "jane@example.com")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("Warning"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}
