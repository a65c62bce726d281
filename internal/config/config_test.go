package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/pkg/encoding"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "127.0.0.1:8088", c.Addr())
	assert.Equal(t, log.LevelInfo, c.LogLevel())
	codec, err := c.Codec()
	require.NoError(t, err)
	assert.Equal(t, encoding.JSONCodec{Pretty: true}, codec)
}

func TestLoadYAML(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(`
snapshot:
  codec: yaml
  workers: 4
log:
  level: debug
server:
  port: 9000
  shutdown_timeout: 2s
`))
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Snapshot.Codec)
	assert.Equal(t, 4, c.Snapshot.Workers)
	assert.Equal(t, "snapshot.json", c.Snapshot.File, "defaults survive")
	assert.Equal(t, log.LevelDebug, c.LogLevel())
	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, 2*time.Second, c.Server.ShutdownTimeout)

	c, err = LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadTOML(t *testing.T) {
	c, err := LoadTOML(strings.NewReader(`
[snapshot]
codec = "gob"
file = "party.bin"

[server]
host = "0.0.0.0"
port = 7000
shutdown_timeout = "1s"
`))
	require.NoError(t, err)
	assert.Equal(t, "gob", c.Snapshot.Codec)
	assert.Equal(t, "party.bin", c.Snapshot.File)
	assert.Equal(t, "0.0.0.0:7000", c.Addr())
	assert.Equal(t, time.Second, c.Server.ShutdownTimeout)
}

func TestValidateJoinsProblems(t *testing.T) {
	c := Default()
	c.Snapshot.Codec = "xml"
	c.Log.Level = "loud"
	c.Server.Port = 70000
	err := c.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, encoding.ErrUnknownCodec)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "c.yml")
	require.NoError(t, os.WriteFile(yml, []byte("snapshot:\n  codec: json-compact\n"), 0o644))
	c, err := LoadFile(yml)
	require.NoError(t, err)
	assert.Equal(t, "json-compact", c.Snapshot.Codec)

	ini := filepath.Join(dir, "c.ini")
	require.NoError(t, os.WriteFile(ini, nil, 0o644))
	_, err = LoadFile(ini)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
