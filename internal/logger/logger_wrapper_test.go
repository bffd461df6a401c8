package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesTypedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromZap(zap.New(core))

	log.Info("note on",
		log.Field().Int("channel", 3),
		log.Field().String("verb", "noteon"),
		log.Field().Error("error", errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "note on", entry.Message)
	ctx := entry.ContextMap()
	assert.EqualValues(t, 3, ctx["channel"])
	assert.Equal(t, "noteon", ctx["verb"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLoggerLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	z := &ZapLogger{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	z.logger = zap.New(core, zap.IncreaseLevel(z.level))

	z.Debug("hidden")
	z.Info("shown")
	z.SetLevel(contracts.ErrorLevel)
	z.Warn("hidden too")
	z.Error("shown too")

	var msgs []string
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"shown", "shown too"}, msgs)
}

func TestZapLoggerFileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synth.log")
	log := NewZapLogger()

	require.NoError(t, log.SetDestination(contracts.FileLog, path))
	log.Info("hello", log.Field().Int("presets", 128))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "128")

	assert.Error(t, log.SetDestination(contracts.FileLog))
}

func TestParseLogLevel(t *testing.T) {
	lvl, ok := contracts.ParseLogLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, contracts.DebugLevel, lvl)

	_, ok = contracts.ParseLogLevel("loud")
	assert.False(t, ok)
}
