/* config.go
 * Loads service configuration from a .env file and the environment. Every key has a default except the store
 * connection settings and the pool id
 * Authors: Zachary Bower
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"survivor-pool/api/logic"
	"survivor-pool/api/shared"
)

// Store backends
const (
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
)

type Config struct {
	// Store and pool
	MongoURI         string `mapstructure:"MONGO_URI"`
	DBName           string `mapstructure:"DB_NAME"`
	StoreBackend     string `mapstructure:"STORE_BACKEND"`
	FirestoreProject string `mapstructure:"FIRESTORE_PROJECT"`
	PoolID           string `mapstructure:"POOL_ID"`
	Season           int    `mapstructure:"SEASON"`
	CurrentWeek      int    `mapstructure:"CURRENT_WEEK"`

	// Discord
	DiscordProdToken string `mapstructure:"DISCORD_PROD_TOKEN"`
	DiscordBetaToken string `mapstructure:"DISCORD_BETA_TOKEN"`
	DiscordAdminIDs  string `mapstructure:"DISCORD_ADMIN_IDS"`

	// Results provider
	ESPNBaseURL        string        `mapstructure:"ESPN_BASE_URL"`
	ProviderRPS        float64       `mapstructure:"PROVIDER_RPS"`
	ProviderTimeout    time.Duration `mapstructure:"PROVIDER_TIMEOUT"`
	ProviderMaxRetries int           `mapstructure:"PROVIDER_MAX_RETRIES"`

	// Engine and cache
	CacheMaxAge time.Duration `mapstructure:"CACHE_MAX_AGE"`
	TieRule     string        `mapstructure:"TIE_RULE"`

	// Audit
	AuditConcurrency int    `mapstructure:"AUDIT_CONCURRENCY"`
	AuditAutoCorrect bool   `mapstructure:"AUDIT_AUTO_CORRECT"`
	AuditSchedule    string `mapstructure:"AUDIT_SCHEDULE"`

	// Polling
	RefreshSchedule   string        `mapstructure:"REFRESH_SCHEDULE"`
	PollInterval      time.Duration `mapstructure:"POLL_INTERVAL"`
	PollMaxIterations int           `mapstructure:"POLL_MAX_ITERATIONS"`

	// Runtime
	HTTPAddr       string        `mapstructure:"HTTP_ADDR"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFormat      string        `mapstructure:"LOG_FORMAT"`
	StatusCacheTTL time.Duration `mapstructure:"STATUS_CACHE_TTL"`
}

var defaults = map[string]interface{}{
	"MONGO_URI":            "",
	"DB_NAME":              "survivor",
	"STORE_BACKEND":        BackendMongo,
	"FIRESTORE_PROJECT":    "",
	"POOL_ID":              "",
	"SEASON":               2025,
	"CURRENT_WEEK":         0,
	"DISCORD_PROD_TOKEN":   "",
	"DISCORD_BETA_TOKEN":   "",
	"DISCORD_ADMIN_IDS":    "",
	"ESPN_BASE_URL":        "https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard",
	"PROVIDER_RPS":         1.0,
	"PROVIDER_TIMEOUT":     "15s",
	"PROVIDER_MAX_RETRIES": 5,
	"CACHE_MAX_AGE":        "30m",
	"TIE_RULE":             string(logic.TieEliminates),
	"AUDIT_CONCURRENCY":    4,
	"AUDIT_AUTO_CORRECT":   false,
	"AUDIT_SCHEDULE":       "0 6 * * *",
	"REFRESH_SCHEDULE":     "*/15 * * * *",
	"POLL_INTERVAL":        "5m",
	"POLL_MAX_ITERATIONS":  48,
	"HTTP_ADDR":            ":8080",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "text",
	"STATUS_CACHE_TTL":     "1m",
}

// Load reads configuration.
// Preconditions: Receives the path of a .env file. An empty path or a missing file is not an error, values then come
// from the environment and defaults only
// Postconditions: Returns the validated config, or an error if the file is unreadable or a value is invalid
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default
func (c Config) Validate() error {
	if strings.TrimSpace(c.PoolID) == "" {
		return fmt.Errorf("POOL_ID is required")
	}
	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store")
		}
	case BackendFirestore:
		if c.FirestoreProject == "" {
			return fmt.Errorf("FIRESTORE_PROJECT is required for the firestore store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND '%s', expected '%s' or '%s'", c.StoreBackend, BackendMongo, BackendFirestore)
	}
	if c.Season <= 0 {
		return fmt.Errorf("SEASON must be positive, got %d", c.Season)
	}
	if c.CurrentWeek < 0 || c.CurrentWeek > shared.LastWeek {
		return fmt.Errorf("CURRENT_WEEK must be between 0 and %d, got %d", shared.LastWeek, c.CurrentWeek)
	}
	if _, err := logic.ParseTieRule(c.TieRule); err != nil {
		return fmt.Errorf("invalid TIE_RULE: %w", err)
	}
	if c.AuditConcurrency < 1 {
		return fmt.Errorf("AUDIT_CONCURRENCY must be at least 1, got %d", c.AuditConcurrency)
	}
	if c.PollMaxIterations < 1 {
		return fmt.Errorf("POLL_MAX_ITERATIONS must be at least 1, got %d", c.PollMaxIterations)
	}
	return nil
}

// AdminIDs returns the discord user ids allowed to run operator commands
func (c Config) AdminIDs() []string {
	ids := []string{}
	for _, id := range strings.Split(c.DiscordAdminIDs, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// TieRuleValue returns the configured tie rule. Load has already validated it
func (c Config) TieRuleValue() logic.TieRule {
	rule, err := logic.ParseTieRule(c.TieRule)
	if err != nil {
		return logic.TieEliminates
	}
	return rule
}

// DiscordToken returns the beta token when test is set, else the production token
func (c Config) DiscordToken(test bool) string {
	if test {
		return c.DiscordBetaToken
	}
	return c.DiscordProdToken
}
