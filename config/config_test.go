package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/college-clubs/backend/config"
)

func TestDSN(t *testing.T) {
	db := config.DatabaseConfig{
		Host: "db", Port: "5433", User: "svc", Password: "pw",
		DBName: "clubs", SSLMode: "require",
	}
	assert.Equal(t, "postgres://svc:pw@db:5433/clubs?sslmode=require", db.DSN())

	db.URL = "postgres://elsewhere:5432/clubs"
	assert.Equal(t, "postgres://elsewhere:5432/clubs", db.DSN())
}

// Without DATABASE_URL the DSN comes from the DB_* components.
func TestLoadBuildsDSNFromComponents(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "clubs")
	t.Setenv("DB_SSLMODE", "disable")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "postgres://svc:pw@pg.internal:5432/clubs?sslmode=disable", cfg.Database.DSN())
}

func TestLoadHonorsDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://override:5432/other")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://override:5432/other", cfg.Database.DSN())
}
