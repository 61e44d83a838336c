package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aq2208/campuspay-terminal/configs"
)

const baseYAML = `
app:
  http_addr: ":8080"
backend:
  base_url: http://localhost:8000
security:
  jwt_secret: s
  operators:
    - id: kiosk-ui
      secret_hash: "$2a$04$abc"
      perms: ["terminal.operate"]
      enabled: true
`

func writeConfig(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoad_DefaultsApplied(t *testing.T) {
	dir := writeConfig(t, map[string]string{"base.yaml": baseYAML})

	cfg, err := configs.Load(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "campuspay-terminal", cfg.App.Name)
	assert.Equal(t, 5*time.Minute, cfg.Settlement.LockTTL)
	assert.Equal(t, time.Hour, cfg.Security.TTL)
	assert.Equal(t, "payment.events", cfg.Rabbit.Exchange)
	require.Len(t, cfg.Security.Operators, 1)
	assert.Equal(t, []string{"terminal.operate"}, cfg.Security.Operators[0].Perms)
	assert.Equal(t, time.Duration(0), cfg.Backend.Timeout)
}

func TestLoad_EnvFileThenEnvironment(t *testing.T) {
	dir := writeConfig(t, map[string]string{
		"base.yaml":    baseYAML,
		"staging.yaml": "backend:\n  base_url: http://staging:8000\n  timeout: 30s\n",
	})
	t.Setenv("CAMPUSPAY_REDIS__ADDR", "redis:6379")

	cfg, err := configs.Load(dir, "staging")
	require.NoError(t, err)
	assert.Equal(t, "http://staging:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)

	t.Setenv("CAMPUSPAY_BACKEND__BASE_URL", "http://override:9000")
	cfg, err = configs.Load(dir, "staging")
	require.NoError(t, err)
	assert.Equal(t, "http://override:9000", cfg.Backend.BaseURL)
}

func TestLoad_MissingBase(t *testing.T) {
	_, err := configs.Load(t.TempDir(), "dev")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() configs.Config {
		var c configs.Config
		c.App.HTTPAddr = ":8080"
		c.Backend.BaseURL = "http://b"
		c.Security.JWTSecret = "s"
		return c
	}

	cases := []struct {
		name    string
		mutate  func(*configs.Config)
		wantErr bool
	}{
		{"valid", func(*configs.Config) {}, false},
		{"no addr", func(c *configs.Config) { c.App.HTTPAddr = "" }, true},
		{"no backend", func(c *configs.Config) { c.Backend.BaseURL = "" }, true},
		{"no jwt secret", func(c *configs.Config) { c.Security.JWTSecret = "" }, true},
		{"kafka without topic", func(c *configs.Config) { c.Kafka.Brokers = []string{"k:9092"} }, true},
		{"telegram without chat", func(c *configs.Config) { c.Telegram.Token = "t" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			if tc.wantErr {
				assert.Error(t, c.Validate())
				return
			}
			assert.NoError(t, c.Validate())
		})
	}
}
