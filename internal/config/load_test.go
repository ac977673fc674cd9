package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.yaml"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	t.Setenv("VINU_CONFIG", "/tmp/env.yaml")
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/env.yaml", resolved)

	t.Setenv("VINU_CONFIG", "")
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "vinu", "config.yaml"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "vinu", "config.yaml"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	data := t.TempDir()
	state := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	t.Setenv("XDG_STATE_HOME", state)
	path := filepath.Join(t.TempDir(), "missing.yaml")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")

	require.Equal(t, BackendNative, loaded.Config.Engine.Backend)
	require.Equal(t, "te", loaded.Config.Engine.Language)
	require.Equal(t, 5, loaded.Config.Engine.BeamSize)
	require.Equal(t, 500, loaded.Config.Audio.ChunkMS)
	require.Equal(t, filepath.Join(data, "vinu", "models", "ggml-small.bin"), loaded.Config.Engine.ModelPath)
	require.Equal(t, filepath.Join(state, "vinu", "history.db"), loaded.Config.History.Path)
}

func TestLoadExistingYAMLParsesAndValidates(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
audio:
  input: alsa_input.usb-mic
  chunk_ms: 250
engine:
  backend: server
  server_url: http://127.0.0.1:9090/
  language: te
sinks:
  file: /tmp/captions.txt
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "alsa_input.usb-mic", loaded.Config.Audio.Input)
	require.Equal(t, 250, loaded.Config.Audio.ChunkMS)
	require.Equal(t, BackendServer, loaded.Config.Engine.Backend)
	require.Equal(t, "http://127.0.0.1:9090", loaded.Config.Engine.ServerURL)
	require.Equal(t, "/tmp/captions.txt", loaded.Config.Sinks.File)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogus_section:\n  x: 1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "te", loaded.Config.Engine.Language)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("VINU_ENGINE", "exec")
	t.Setenv("VINU_LANGUAGE", "TE")
	t.Setenv("VINU_NATS_URL", "nats://127.0.0.1:4222")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  backend: native\n  command: whisper-cli\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, BackendExec, loaded.Config.Engine.Backend)
	require.Equal(t, "te", loaded.Config.Engine.Language)
	require.Equal(t, "nats://127.0.0.1:4222", loaded.Config.Sinks.NATS.URL)
}

func TestLoadHistoryOffDisablesStore(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  path: \"off\"\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, loaded.Config.History.Path)
}
