package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestForPrincipalAddsField(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewLogger(zap.New(core))

	log.ForPrincipal("aaaaa-aa").Info("wallet created", "balance", 0)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "aaaaa-aa", fields["principal"])
		assert.EqualValues(t, 0, fields["balance"])
	}
}

func TestDebugFilteredAtInfo(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewLogger(zap.New(core))

	log.Debug("noise")
	log.Warn("kept")

	assert.Equal(t, 1, logs.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zap.InfoLevel, parseLevel("bogus"))
	assert.Equal(t, zap.ErrorLevel, parseLevel("error"))
}
