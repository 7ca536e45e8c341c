package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// isolate points ENV_FILE at a missing file so a stray .env cannot leak in.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, k := range []string{
		"PORT", "ENV", "NODE_ENV", "LOG_LEVEL", "DB_ADAPTER", "SQLITE_FILE", "API_PREFIX", "CORS_ORIGINS",
		"SECRET_KEY", "JWT_SECRET", "ALGORITHM", "ACCESS_TOKEN_EXPIRE_MINUTES", "BCRYPT_COST",
		"POSTGRES_DSN", "POSTGRES_HOST", "DB_HOST",
	} {
		t.Setenv(k, "")
	}
}

func TestNew_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("DB_ADAPTER", "memory")

	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "development", c.Env)
	assert.Equal(t, "/api/v1", c.APIPrefix)
	assert.Equal(t, "HS256", c.Algorithm)
	assert.Equal(t, 30, c.AccessTokenMinutes)
	assert.Equal(t, bcrypt.DefaultCost, c.BcryptCost)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, c.CORSOrigins)
	assert.False(t, c.IsProduction())

	tc := c.TokenConfig()
	assert.Equal(t, 30*time.Minute, tc.TTL)
	assert.Equal(t, []byte(defaultSecret), tc.Secret)
}

func TestNew_Overrides(t *testing.T) {
	isolate(t)
	t.Setenv("DB_ADAPTER", "sqlite")
	t.Setenv("SQLITE_FILE", "/tmp/x.db")
	t.Setenv("JWT_SECRET", "legacy")
	t.Setenv("ALGORITHM", "hs512")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("API_PREFIX", "/v2/")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, "legacy", c.SecretKey)
	assert.Equal(t, "HS512", c.Algorithm)
	assert.Equal(t, 5*time.Minute, c.TokenConfig().TTL)
	assert.Equal(t, "/v2", c.APIPrefix)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)

	t.Setenv("SECRET_KEY", "primary")
	c, err = New()
	require.NoError(t, err)
	assert.Equal(t, "primary", c.SecretKey)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"production default secret", map[string]string{"ENV": "production"}},
		{"zero minutes", map[string]string{"ACCESS_TOKEN_EXPIRE_MINUTES": "0"}},
		{"non-numeric minutes", map[string]string{"ACCESS_TOKEN_EXPIRE_MINUTES": "soon"}},
		{"asymmetric algorithm", map[string]string{"ALGORITHM": "RS256"}},
		{"bcrypt cost too low", map[string]string{"BCRYPT_COST": "1"}},
		{"bad port", map[string]string{"PORT": "http"}},
		{"unknown adapter", map[string]string{"DB_ADAPTER": "mongo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("DB_ADAPTER", "memory")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestNew_ProductionWithSecret(t *testing.T) {
	isolate(t)
	t.Setenv("DB_ADAPTER", "memory")
	t.Setenv("ENV", "prod")
	t.Setenv("SECRET_KEY", "a-real-secret")

	c, err := New()
	require.NoError(t, err)
	assert.True(t, c.IsProduction())
}

func TestNew_LoadsEnvFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_ADAPTER=memory\nPORT=9090\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv does not override variables that are already set
	os.Unsetenv("DB_ADAPTER")
	os.Unsetenv("PORT")

	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "memory", c.DBAdapter)
}

func TestBuildPostgresDSN(t *testing.T) {
	c := &Config{PostgresHost: "db", PostgresUser: "u", PostgresDB: "d", PostgresPassword: "p"}
	dsn, err := c.BuildPostgresDSN()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=u dbname=d sslmode=disable password=p", dsn)

	c = &Config{PostgresDSN: "postgres://x"}
	dsn, err = c.BuildPostgresDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", dsn)

	_, err = (&Config{}).BuildPostgresDSN()
	assert.Error(t, err)
}
