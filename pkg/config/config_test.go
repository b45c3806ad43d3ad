package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jhoicas/pos-core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir aísla Load del .env del repositorio.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "dev", cfg.DIAN.AppEnv)
	assert.Equal(t, int32(25), cfg.DB.MaxConns)
	assert.Equal(t, 10*time.Second, cfg.DB.LockTimeout)
	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 2*time.Second, cfg.Filing.PollInterval)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_PORT=9000\nSTORE_DRIVER=memory\nREDIS_ADDRESS=localhost:6379\n"), 0o600))
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("DIAN_APP_ENV", "TEST")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTP.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "test", cfg.DIAN.AppEnv)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":   {"STORE_DRIVER": "mysql"},
		"dian env": {"DIAN_APP_ENV": "staging"},
		"intentos": {"FILING_MAX_ATTEMPTS": "0"},
		"conexión": {"DB_MIN_CONNS": "30", "DB_MAX_CONNS": "5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			inTempDir(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "pos", Password: "p@ss:w/rd", DBName: "pos_core", SSLMode: "require"}
	assert.Equal(t, "postgres://pos:p%40ss%3Aw%2Frd@db:5432/pos_core?sslmode=require", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
