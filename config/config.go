package config

import (
	"asterctl/signing"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL = "https://fapi.asterdex.com"
	DefaultWSURL   = "wss://fstream.asterdex.com/ws"

	// DefaultPrivateKeyEnv holds the key of an account that does not name its own variable.
	DefaultPrivateKeyEnv = "PRIVATE_KEY"

	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

var (
	ErrNoAccounts        = errors.New("no accounts configured")
	ErrMissingPrivateKey = errors.New("private key not set")
)

// Settings are the process-wide knobs read from the environment.
type Settings struct {
	BaseURL           string
	WSURL             string
	HTTPTimeout       time.Duration
	RequestsPerSecond float64
	RecvWindow        int64
	VOffset           int
	LogLevel          string
	LogFormat         string
	CacheBackend      string
	CacheEnabled      bool
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
}

// Account is one trading account. The private key itself is never part of
// the accounts file; PrivateKeyEnv names the variable that holds it.
type Account struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name,omitempty"`
	UserAddress   string `yaml:"user_address"`
	SignerAddress string `yaml:"signer_address"`
	PrivateKeyEnv string `yaml:"private_key_env,omitempty"`
	Enabled       *bool  `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the account takes part in multi-account queries.
// Accounts are enabled unless the file says otherwise.
func (a Account) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// PrivateKey reads the account's key from the environment. It is meant to be
// called right before signing.
func (a Account) PrivateKey() (string, error) {
	env := a.PrivateKeyEnv
	if env == "" {
		env = DefaultPrivateKeyEnv
	}
	key := strings.TrimSpace(os.Getenv(env))
	if key == "" {
		return "", fmt.Errorf("account %q: %w (%s)", a.ID, ErrMissingPrivateKey, env)
	}
	return key, nil
}

type accountsFile struct {
	Accounts []Account `yaml:"accounts"`
}

type Config struct {
	Settings Settings
	Accounts []Account
}

// Load reads envFile (or .env when empty, if present) into the environment,
// then builds the settings and accounts. Accounts come from accountsPath, the
// ACCOUNTS_FILE variable, or a single account described by USER_ADDRESS and
// SIGNER_ADDRESS, in that order.
func Load(envFile, accountsPath string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	} else {
		// Load .env file if it exists (optional)
		_ = godotenv.Load()
	}

	cfg := &Config{Settings: LoadSettings()}

	if accountsPath == "" {
		accountsPath = os.Getenv("ACCOUNTS_FILE")
	}

	if accountsPath != "" {
		accounts, err := LoadAccounts(accountsPath)
		if err != nil {
			return nil, err
		}
		cfg.Accounts = accounts
		return cfg, nil
	}

	if acct, ok := envAccount(); ok {
		cfg.Accounts = []Account{acct}
	}
	return cfg, nil
}

func LoadSettings() Settings {
	return Settings{
		BaseURL:           getEnvString("ASTER_BASE_URL", DefaultBaseURL),
		WSURL:             getEnvString("ASTER_WS_URL", DefaultWSURL),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		RequestsPerSecond: getEnvFloat("REQUESTS_PER_SECOND", 10),
		RecvWindow:        int64(getEnvInt("RECV_WINDOW", signing.DefaultRecvWindow)),
		VOffset:           getEnvInt("SIGNATURE_V_OFFSET", 0),
		LogLevel:          getEnvString("LOG_LEVEL", "info"),
		LogFormat:         getEnvString("LOG_FORMAT", "text"),
		CacheBackend:      strings.ToLower(getEnvString("CACHE_BACKEND", CacheMemory)),
		CacheEnabled:      getEnvBool("CACHE_ENABLED", true),
		RedisAddr:         getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnvString("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
	}
}

// LoadAccounts parses a YAML accounts file.
func LoadAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}

	var f accountsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing accounts: %w", err)
	}

	for i := range f.Accounts {
		if f.Accounts[i].ID == "" {
			f.Accounts[i].ID = fmt.Sprintf("account-%d", i+1)
		}
	}
	return f.Accounts, nil
}

func envAccount() (Account, bool) {
	user := getEnvString("USER_ADDRESS", "")
	signer := getEnvString("SIGNER_ADDRESS", "")
	if user == "" && signer == "" {
		return Account{}, false
	}
	return Account{
		ID:            getEnvString("ACCOUNT_ID", "default"),
		UserAddress:   user,
		SignerAddress: signer,
		PrivateKeyEnv: DefaultPrivateKeyEnv,
	}, true
}

// EnabledAccounts returns the accounts that are not disabled.
func (c *Config) EnabledAccounts() ([]Account, error) {
	var out []Account
	for _, a := range c.Accounts {
		if a.IsEnabled() {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoAccounts
	}
	return out, nil
}

// Account looks up an account by id, or returns the first enabled account
// when id is empty.
func (c *Config) Account(id string) (Account, error) {
	if id == "" {
		accounts, err := c.EnabledAccounts()
		if err != nil {
			return Account{}, err
		}
		return accounts[0], nil
	}
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("account %q not found", id)
}

func (c *Config) Validate() error {
	s := c.Settings
	if s.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid HTTP_TIMEOUT: %s", s.HTTPTimeout)
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid REQUESTS_PER_SECOND: %v", s.RequestsPerSecond)
	}
	if s.RecvWindow <= 0 {
		return fmt.Errorf("invalid RECV_WINDOW: %d", s.RecvWindow)
	}
	if s.VOffset != 0 && s.VOffset != 27 {
		return fmt.Errorf("invalid SIGNATURE_V_OFFSET: %d (must be 0 or 27)", s.VOffset)
	}
	switch s.CacheBackend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q", s.CacheBackend)
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", s.LogFormat)
	}

	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if seen[a.ID] {
			return fmt.Errorf("duplicate account id %q", a.ID)
		}
		seen[a.ID] = true

		if _, err := signing.ParseAddress(signing.ParamUser, a.UserAddress); err != nil {
			return fmt.Errorf("account %q: %w", a.ID, err)
		}
		if _, err := signing.ParseAddress(signing.ParamSigner, a.SignerAddress); err != nil {
			return fmt.Errorf("account %q: %w", a.ID, err)
		}
	}
	return nil
}
