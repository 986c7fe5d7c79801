package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")

	Info("mount recorded", "client", 42, "version", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "mount recorded", entry["msg"])
	assert.Equal(t, float64(42), entry["client"])
	assert.Equal(t, float64(7), entry["version"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")

	Debug("should be dropped")
	Info("should be dropped too")
	Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	SetLevel("NOISY") // invalid, level stays INFO

	Info("still visible")
	assert.True(t, strings.Contains(buf.String(), "still visible"))
}
