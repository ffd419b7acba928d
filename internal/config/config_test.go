package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFromFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zarrdump.yaml"), []byte(`
log:
  level: debug
check:
  sample_limit: 50
server:
  root: /data
`), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, uint64(50), cfg.Check.SampleLimit)
	assert.Equal(t, "/data", cfg.Server.Root)
	assert.Equal(t, 1e-6, cfg.Check.Tolerance)
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  grpc_port: 6000\n"), 0o644))
	t.Setenv("ZARRDUMP_SERVER_GRPC_PORT", "7000")
	t.Setenv("ZARRDUMP_CHECK_TOLERANCE", "0.5")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.GrpcPort)
	assert.Equal(t, 0.5, cfg.Check.Tolerance)
}

func TestChangedFlagsOverrideEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ZARRDUMP_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Uint64("sample-limit", 10000, "")
	require.NoError(t, flags.Parse([]string{"--log-level=error"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, uint64(10000), cfg.Check.SampleLimit, "unchanged flags keep the default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"zero sample limit", func(c *Config) { c.Check.SampleLimit = 0 }, "check.sample_limit"},
		{"negative tolerance", func(c *Config) { c.Check.Tolerance = -1 }, "check.tolerance"},
		{"port range", func(c *Config) { c.Server.GrpcPort = 70000 }, "server.grpc_port"},
		{"same ports", func(c *Config) { c.Server.MetricsPort = c.Server.GrpcPort }, "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, Defaults().Validate())
}
