package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nextcloud-stress.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeTestConfig(t, `
[stress]
files = 10
max_uploads = 5
file_size = "1KiB"

[clean]
exclude = ["keep/"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Stress.Files)
	assert.Equal(t, 5, cfg.Stress.MaxUploads)
	assert.Equal(t, DefaultMaxDeletes, cfg.Stress.MaxDeletes)
	assert.Equal(t, DefaultStressFolder, cfg.Stress.Folder)
	assert.Equal(t, []string{"keep/"}, cfg.Clean.Exclude)
}

func TestLoad_UnknownKeyIsFatal(t *testing.T) {
	path := writeTestConfig(t, `
[stress]
max_upload = 5
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stress.max_upload")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeTestConfig(t, `
[stress]
files = 0
max_uploads = 0

[logging]
level = "chatty"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stress.files")
	assert.Contains(t, err.Error(), "stress.max_uploads")
	assert.Contains(t, err.Error(), "logging.level")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Layering(t *testing.T) {
	path := writeTestConfig(t, `
[target]
environment = "test"
nodes = ["from-file"]

[stress]
wave_timeout = "90s"
file_size = "2KiB"
`)

	env := EnvOverrides{ConfigPath: path, Environment: "prod", Nodes: []string{"from-env"}}

	r, err := Resolve(env, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "prod", r.Target.Environment)
	assert.Equal(t, []string{"from-file"}, r.Target.Nodes, "customer list is applied by the target, not the config")
	assert.Equal(t, int64(2048), r.FileSize)
	assert.Equal(t, 90*time.Second, r.WaveTimeout)
	assert.Equal(t, int64(DefaultChunkSize), r.ChunkSize)
	assert.Equal(t, []int64{100_000_000, 200_000_000, 400_000_000}, r.FileSizes)

	r, err = Resolve(env, CLIOverrides{Environment: "test", Nodes: []string{"from-cli"}})
	require.NoError(t, err)
	assert.Equal(t, "test", r.Target.Environment)
	assert.Equal(t, []string{"from-cli"}, r.Target.Nodes)
}

func TestResolve_RejectsBadEnvironment(t *testing.T) {
	_, err := Resolve(EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "none.toml"), Environment: "staging"}, CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.environment")
}
