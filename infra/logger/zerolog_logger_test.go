package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestJSONOutputCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newZerolog("solver", Options{Format: "json", Out: &buf})
	l.Infof("sweep %d", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "solver", rec["component"])
	assert.Equal(t, "sweep 3", rec["message"])
	assert.Equal(t, "info", rec["level"])
}

func TestConfigure(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer func() { defaults = Options{Out: os.Stdout} }()

	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "warn", Format: "json", Out: &buf}))
	l := NewZerologLogger("cfg")
	l.Infof("hidden")
	l.Warnf("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, Configure(Options{Level: "loud"}))
	assert.Error(t, Configure(Options{Format: "xml"}))
}
