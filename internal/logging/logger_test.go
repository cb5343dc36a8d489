package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savora/internal/config"
)

func TestNewWithOutput_JSONFieldMap(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(config.LogConfig{Level: "debug", Format: "json"}, &buf)

	log.WithField("recipe_id", "r1").Info("recipe created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "recipe created", entry["message"])
	assert.Equal(t, "info", entry["severity"])
	assert.Equal(t, "r1", entry["recipe_id"])
	assert.Contains(t, entry, "timestamp")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewWithOutput_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(config.LogConfig{Level: "loud", Format: "text"}, &buf)

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	log.Debug("hidden")
	assert.Empty(t, buf.String())
}
