package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithWriter_TeesJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := InitializeWithWriter("production", &buf)
	require.NoError(t, err)
	l.Info("payment reconciled")
	_ = l.Sync()

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "payment reconciled", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "timestamp")
	assert.Same(t, l, Log)
}

func TestInitialize_Development(t *testing.T) {
	l, err := Initialize("development")
	require.NoError(t, err)
	assert.NotNil(t, l)
}
