package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Host)
	require.Equal(t, 5433, cfg.Database.Port)
	require.Equal(t, "grantor", cfg.Database.Name)
	require.Equal(t, "grantor", cfg.Database.User)
	require.Equal(t, "secret", cfg.Database.Password)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "grantor-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 40, cfg.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Window)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Monitoring.Health.Enabled)

	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, "@every 6h", cfg.Maintenance.AuditSchedule)
	require.Equal(t, "@every 10m", cfg.Maintenance.CacheSchedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/grantor.sqlite", cfg.Database.Path)
	require.Equal(t, "grantor", cfg.Auth.JWT.Issuer)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.False(t, cfg.RateLimit.Enabled)
	require.Equal(t, 120, cfg.RateLimit.Requests)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, "@daily", cfg.Maintenance.AuditSchedule)
	require.Equal(t, "@hourly", cfg.Maintenance.CacheSchedule)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GRANTOR_SERVER_PORT", "7070")
	t.Setenv("GRANTOR_AUTH_JWT_SECRET", "env-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
}

func TestDatabaseConfigConnection(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:   "mysql",
		Host:     "db.internal",
		Port:     3306,
		Name:     "grantor",
		User:     "svc",
		Password: "pw",
	}

	conn := cfg.Connection()
	require.Equal(t, "mysql", conn.Driver)
	require.Equal(t, "db.internal", conn.Host)
	require.Equal(t, 3306, conn.Port)
	require.Equal(t, "grantor", conn.Name)
	require.Equal(t, "svc", conn.User)
	require.Equal(t, "pw", conn.Password)
}
