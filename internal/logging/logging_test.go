package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewWritesServiceField(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Service: "cartctl", Level: "debug", Output: buf})

	logger.Debug().Str("product_id", "p1").Msg("line added")

	assert.Contains(t, buf.String(), `"service":"cartctl"`)
	assert.Contains(t, buf.String(), `"product_id":"p1"`)
}

func TestNewRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Options{Service: "api", Level: "warn", Output: buf})

	logger.Info().Msg("hidden")

	assert.Empty(t, buf.String())
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" ERROR "))
}
