package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 15*time.Minute, cfg.HoldTTL())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
	assert.Equal(t, 500, cfg.ServiceFeeBP)
	assert.Equal(t, 800, cfg.TaxBP)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
storage_driver: memory
hold_timeout_minutes: 20
kafka_brokers: [broker-1:9092, broker-2:9092]
tax_bp: 0
`), 0o600))

	cfg, err := load(lookupFrom(map[string]string{
		FileEnv:                  path,
		"PORT":                   "7070",
		"SWEEP_INTERVAL_MINUTES": "1",
		"CORS_ORIGINS":           "https://a.example, ,https://b.example",
	}))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port, "env wins over file")
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 20*time.Minute, cfg.HoldTTL())
	assert.Equal(t, time.Minute, cfg.SweepInterval())
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 0, cfg.TaxBP)
	assert.Equal(t, 500, cfg.ServiceFeeBP)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"bad number":      {"HOLD_TIMEOUT_MINUTES": "soon"},
		"zero ttl":        {"HOLD_TIMEOUT_MINUTES": "0"},
		"negative rate":   {"TAX_BP": "-1"},
		"unknown driver":  {"STORAGE_DRIVER": "sqlite"},
		"missing file":    {FileEnv: "/does/not/exist.yaml"},
		"zero sweep rate": {"SWEEP_INTERVAL_MINUTES": "0"},
	}
	for name, env := range cases {
		_, err := load(lookupFrom(env))
		assert.Error(t, err, name)
	}
}

func TestLoadEnvFile_KeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RESERVATIONS_TEST_A=from-file\nRESERVATIONS_TEST_B=from-file\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("RESERVATIONS_TEST_A", "from-env")

	path, err := LoadEnvFile()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".env"), path)
	assert.Equal(t, "from-env", os.Getenv("RESERVATIONS_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("RESERVATIONS_TEST_B"))
	require.NoError(t, os.Unsetenv("RESERVATIONS_TEST_B"))
}
