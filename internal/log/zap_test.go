package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(WithLogLevel("loud"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level=loud")
}

func TestNewLogger_WritesJSONWithApp(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.log")

	zl, err := NewLogger(WithLogLevel("warn"), WithOutputPaths(out), WithApp("visits-server"))
	require.NoError(t, err)

	zl.Info("dropped")
	zl.Warn("kept")
	require.NoError(t, zl.Sync())

	b, err := os.ReadFile(out)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "visits-server", entry["app"])
}

func TestMust_Panics(t *testing.T) {
	assert.Panics(t, func() {
		Must(NewLogger(WithLogLevel("nope")))
	})
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
