package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreFirestore, cfg.Store.Backend)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, time.Minute, cfg.JWT.TicketExpiry)
	assert.Equal(t, "http://localhost:8080/auth/google/callback", cfg.Google.RedirectURL)
	assert.Equal(t, []string{}, cfg.Google.ClientIDs)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.Server.TrustProxy)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/praxis")
	t.Setenv("GOOGLE_CLIENT_ID", " web.apps , ,ios.apps")
	t.Setenv("WEB_APP_URL", "https://praxis.app/")
	t.Setenv("WS_TICKET_EXPIRY", "30s")
	t.Setenv("AUTH_RATE_BURST", "not-a-number")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store.Backend)
	assert.Equal(t, []string{"web.apps", "ios.apps"}, cfg.Google.ClientIDs)
	assert.Equal(t, "https://praxis.app", cfg.Server.WebAppURL)
	assert.Equal(t, "http://localhost:9000", cfg.Server.PublicURL)
	assert.Equal(t, 30*time.Second, cfg.JWT.TicketExpiry)
	assert.Equal(t, 5, cfg.RateLimit.AuthBurst)
	assert.True(t, cfg.Server.TrustProxy)
}

func TestValidate(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("STORE_BACKEND", "mongo")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown STORE_BACKEND")

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("STORAGE_TYPE", "s3")
	_, err = Load()
	assert.ErrorContains(t, err, "R2_BUCKET_NAME")

	t.Setenv("STORAGE_TYPE", "local")
	t.Setenv("ENV", "production")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
