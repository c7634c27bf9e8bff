package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userAddr   = "0x1111111111111111111111111111111111111111"
	signerAddr = "0x2222222222222222222222222222222222222222"
)

var envKeys = []string{
	"ASTER_BASE_URL", "ASTER_WS_URL", "HTTP_TIMEOUT", "REQUESTS_PER_SECOND", "RECV_WINDOW",
	"SIGNATURE_V_OFFSET", "LOG_LEVEL", "LOG_FORMAT", "CACHE_BACKEND", "CACHE_ENABLED",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "ACCOUNTS_FILE", "USER_ADDRESS", "SIGNER_ADDRESS",
	"ACCOUNT_ID", "PRIVATE_KEY", "ALPHA_KEY",
}

// clearEnv unsets keys for the duration of the test and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearEnv(t)

	s := LoadSettings()
	assert.Equal(t, DefaultBaseURL, s.BaseURL)
	assert.Equal(t, DefaultWSURL, s.WSURL)
	assert.Equal(t, 30*time.Second, s.HTTPTimeout)
	assert.Equal(t, int64(5000), s.RecvWindow)
	assert.Equal(t, 0, s.VOffset)
	assert.Equal(t, CacheMemory, s.CacheBackend)
	assert.True(t, s.CacheEnabled)
	assert.Equal(t, "text", s.LogFormat)
}

func TestLoadSettings_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASTER_BASE_URL", "http://localhost:9000")
	t.Setenv("HTTP_TIMEOUT", "5")
	t.Setenv("REQUESTS_PER_SECOND", "2.5")
	t.Setenv("RECV_WINDOW", "10000")
	t.Setenv("SIGNATURE_V_OFFSET", "27")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("CACHE_ENABLED", "false")

	s := LoadSettings()
	assert.Equal(t, "http://localhost:9000", s.BaseURL)
	assert.Equal(t, 5*time.Second, s.HTTPTimeout)
	assert.Equal(t, 2.5, s.RequestsPerSecond)
	assert.Equal(t, int64(10000), s.RecvWindow)
	assert.Equal(t, 27, s.VOffset)
	assert.Equal(t, CacheRedis, s.CacheBackend)
	assert.Equal(t, 3, s.RedisDB)
	assert.Equal(t, "hunter2", s.RedisPassword)
	assert.False(t, s.CacheEnabled)
}

func TestGetEnvHelpers_InvalidFallsBack(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_DURATION", "soon")
	t.Setenv("TEST_BOOL", "maybe")

	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION", time.Minute))
	assert.True(t, getEnvBool("TEST_BOOL", true))

	t.Setenv("TEST_DURATION", "1m30s")
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Minute))
}

func TestLoad_AccountsFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "accounts.yaml", `
accounts:
  - id: alpha
    name: Alpha
    user_address: `+userAddr+`
    signer_address: `+signerAddr+`
    private_key_env: ALPHA_KEY
  - user_address: `+userAddr+`
    signer_address: `+signerAddr+`
    enabled: false
`)

	cfg, err := Load("", path)
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 2)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "alpha", cfg.Accounts[0].ID)
	assert.Equal(t, "Alpha", cfg.Accounts[0].DisplayName())
	assert.Equal(t, "account-2", cfg.Accounts[1].ID)
	assert.False(t, cfg.Accounts[1].IsEnabled())

	enabled, err := cfg.EnabledAccounts()
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "alpha", enabled[0].ID)

	acct, err := cfg.Account("")
	require.NoError(t, err)
	assert.Equal(t, "alpha", acct.ID)

	_, err = cfg.Account("missing")
	assert.Error(t, err)
}

func TestLoad_AccountsFileFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "accounts.yaml", "accounts:\n  - id: one\n    user_address: "+userAddr+"\n    signer_address: "+signerAddr+"\n")
	t.Setenv("ACCOUNTS_FILE", path)

	cfg, err := Load("", "")
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, "one", cfg.Accounts[0].ID)
}

func TestLoad_EnvFileSingleAccount(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "USER_ADDRESS="+userAddr+"\nSIGNER_ADDRESS="+signerAddr+"\nPRIVATE_KEY=0xabc\nRECV_WINDOW=6000\n")

	cfg, err := Load(envFile, "")
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, "default", cfg.Accounts[0].ID)
	assert.Equal(t, int64(6000), cfg.Settings.RecvWindow)

	key, err := cfg.Accounts[0].PrivateKey()
	require.NoError(t, err)
	assert.Equal(t, "0xabc", key)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"), "")
	assert.Error(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "accounts: [oops")
	_, err = Load("", bad)
	assert.ErrorContains(t, err, "parsing accounts")
}

func TestConfig_NoAccounts(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Accounts)

	_, err = cfg.EnabledAccounts()
	assert.ErrorIs(t, err, ErrNoAccounts)
	_, err = cfg.Account("")
	assert.ErrorIs(t, err, ErrNoAccounts)
}

func TestAccount_PrivateKey(t *testing.T) {
	clearEnv(t)
	acct := Account{ID: "alpha", PrivateKeyEnv: "ALPHA_KEY"}

	_, err := acct.PrivateKey()
	assert.ErrorIs(t, err, ErrMissingPrivateKey)
	assert.ErrorContains(t, err, "ALPHA_KEY")

	t.Setenv("ALPHA_KEY", "  0xdeadbeef \n")
	key, err := acct.PrivateKey()
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", key)

	t.Setenv("PRIVATE_KEY", "0x01")
	key, err = Account{ID: "b"}.PrivateKey()
	require.NoError(t, err)
	assert.Equal(t, "0x01", key)
}

func TestConfig_Validate(t *testing.T) {
	clearEnv(t)
	good := Account{ID: "a", UserAddress: userAddr, SignerAddress: signerAddr}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "v offset", mutate: func(c *Config) { c.Settings.VOffset = 1 }, wantErr: "SIGNATURE_V_OFFSET"},
		{name: "cache backend", mutate: func(c *Config) { c.Settings.CacheBackend = "memcached" }, wantErr: "CACHE_BACKEND"},
		{name: "log format", mutate: func(c *Config) { c.Settings.LogFormat = "xml" }, wantErr: "LOG_FORMAT"},
		{name: "timeout", mutate: func(c *Config) { c.Settings.HTTPTimeout = 0 }, wantErr: "HTTP_TIMEOUT"},
		{name: "recv window", mutate: func(c *Config) { c.Settings.RecvWindow = -1 }, wantErr: "RECV_WINDOW"},
		{name: "duplicate id", mutate: func(c *Config) { c.Accounts = append(c.Accounts, good) }, wantErr: "duplicate"},
		{name: "bad user", mutate: func(c *Config) { c.Accounts[0].UserAddress = "0x123" }, wantErr: "user"},
		{name: "bad signer", mutate: func(c *Config) { c.Accounts[0].SignerAddress = "" }, wantErr: "signer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Settings: LoadSettings(), Accounts: []Account{good}}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
