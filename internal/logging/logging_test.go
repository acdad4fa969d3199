package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventpos.log")
	sink, err := OpenFileSink(path)
	require.NoError(t, err)
	assert.Equal(t, path, sink.Path())

	logger := sink.Attach(zap.NewNop(), false)
	logger.Info("sale booked", zap.String("uuid", "u1"))
	logger.Debug("tag scanned")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "sale booked", entry["msg"])
	assert.Equal(t, "u1", entry["uuid"])
}

func TestFileSinkDebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventpos.log")
	sink, err := OpenFileSink(path)
	require.NoError(t, err)

	sink.Attach(zap.NewNop(), true).Debug("tag scanned")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tag scanned")
}

func TestNoFileSink(t *testing.T) {
	sink, err := OpenFileSink("")
	require.NoError(t, err)
	assert.Nil(t, sink)

	base := zap.NewNop()
	assert.Same(t, base, sink.Attach(base, true))
	assert.NoError(t, sink.Close())
}
