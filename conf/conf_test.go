package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/caseflow/internal/pkg/watcher"
)

func chdirTemp(t *testing.T, configYAML string) {
	t.Helper()

	dir := t.TempDir()
	if configYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(configYAML), 0o600))
	}

	t.Chdir(dir)
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.APIServer.Port)
	assert.Equal(t, 30*time.Second, cfg.APIServer.RequestTimeout)
	assert.Equal(t, "sqlite3", cfg.DB.Dialect)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.True(t, cfg.Permission.SeedDefaults)
	assert.Equal(t, watcher.ModeMemory, cfg.Permission.Watcher.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Permission.Cache.Memory.Expiration)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Contains(t, cfg.Organization.ReservedSubdomains, "www")
	assert.Contains(t, cfg.APIServer.CORS.AllowedMethods, "DELETE")
}

func TestLoad_FileAndEnv(t *testing.T) {
	chdirTemp(t, `
server:
  port: 9000
  request_timeout: 5s
db:
  dialect: postgres
  dsn: postgres://localhost/caseflow
permission:
  cache:
    mode: memory
access:
  relationship_roles: [vendor, investigator]
gc:
  audit_retention_days: 30
`)
	t.Setenv("CASEFLOW_SERVER_PORT", "9100")
	t.Setenv("CASEFLOW_AUTH_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.APIServer.Port)
	assert.Equal(t, 5*time.Second, cfg.APIServer.RequestTimeout)
	assert.Equal(t, "postgres", cfg.DB.Dialect)
	assert.Equal(t, "memory", cfg.Permission.Cache.Mode)
	assert.Equal(t, []string{"vendor", "investigator"}, cfg.Access.RelationshipRoles)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 30, cfg.GC.AuditRetentionDays)
}

func TestValidate(t *testing.T) {
	chdirTemp(t, "")

	cfg, err := Load()
	require.NoError(t, err)

	cfg.Auth.Secret = "s3cret"
	require.NoError(t, Validate(cfg))

	cfg.APIServer.Port = 0
	cfg.Auth.Secret = ""
	cfg.Metrics.Exporter = "prometheus"
	cfg.Permission.Watcher.Mode = "kafka"

	err = Validate(cfg)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 4)
}
