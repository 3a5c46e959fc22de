package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerIncludesStackAndService(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("chai-test", &buf)
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "chai-test", payload["service"])
	assert.Equal(t, "error", payload["level"])
	assert.Equal(t, "boom", payload["error"])
	assert.Contains(t, payload, "stack")
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	require.NoError(t, SetLevel("warn"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.Error(t, SetLevel("loud"))
}
