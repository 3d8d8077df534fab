package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig selects the conversation store. URL, when set, wins over the
// discrete postgres fields; its scheme picks the driver (postgres, sqlite, mysql).
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	Path     string `mapstructure:"path"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

// Backend reports which driver the configuration resolves to.
func (c DatabaseConfig) Backend() string {
	if c.URL != "" {
		scheme, _, _ := strings.Cut(c.URL, "://")
		switch strings.ToLower(scheme) {
		case "postgres", "postgresql":
			return DriverPostgres
		case "sqlite", "sqlite3", "file":
			return DriverSQLite
		case "mysql":
			return DriverMySQL
		}
	}
	if c.Driver != "" {
		return strings.ToLower(c.Driver)
	}
	return DriverPostgres
}

// DSN returns the driver-native connection string.
func (c DatabaseConfig) DSN() string {
	switch c.Backend() {
	case DriverSQLite:
		return c.SQLitePath()
	case DriverMySQL:
		if c.URL != "" {
			return mysqlDSNFromURL(c.URL)
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	default:
		if c.URL != "" {
			return c.URL
		}
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
		)
	}
}

// MigrateURL returns the URL golang-migrate expects for the backend.
func (c DatabaseConfig) MigrateURL() string {
	switch c.Backend() {
	case DriverSQLite:
		return "sqlite://" + c.SQLitePath()
	case DriverMySQL:
		return "mysql://" + c.DSN()
	default:
		return c.DSN()
	}
}

// SQLitePath resolves the database file path from URL or Path.
func (c DatabaseConfig) SQLitePath() string {
	p := c.Path
	if c.URL != "" {
		_, rest, found := strings.Cut(c.URL, "://")
		if found {
			p = rest
		}
	}
	if p == "" {
		p = filepath.Join(HomeDir(), "neuralizard.db")
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}

func mysqlDSNFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	pass, _ := u.User.Password()
	q := u.Query()
	q.Set("parseTime", "true")
	return fmt.Sprintf("%s:%s@tcp(%s)%s?%s", u.User.Username(), pass, u.Host, u.Path, q.Encode())
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	DefaultProvider string         `mapstructure:"default_provider"`
	Temperature     float64        `mapstructure:"temperature"`
	MaxTokens       int            `mapstructure:"max_tokens"`
	RequestTimeout  time.Duration  `mapstructure:"request_timeout"`
	StreamTimeout   time.Duration  `mapstructure:"stream_timeout"`
	TitleTimeout    time.Duration  `mapstructure:"title_timeout"`
	OpenAI          ProviderConfig `mapstructure:"openai"`
	Anthropic       ProviderConfig `mapstructure:"anthropic"`
	Google          ProviderConfig `mapstructure:"google"`
	Mistral         ProviderConfig `mapstructure:"mistral"`
	Cohere          ProviderConfig `mapstructure:"cohere"`
	XAI             ProviderConfig `mapstructure:"xai"`
	DeepSeek        ProviderConfig `mapstructure:"deepseek"`
	Perplexity      ProviderConfig `mapstructure:"perplexity"`
	Ollama          OllamaConfig   `mapstructure:"ollama"`
}

// ProviderConfig carries the credential and optional overrides for one vendor.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

// SessionConfig tunes the interactive chat session.
type SessionConfig struct {
	ContextWindow int `mapstructure:"context_window"`
	HistoryLimit  int `mapstructure:"history_limit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// HomeDir returns the per-user directory holding the env file and default database.
func HomeDir() string {
	if dir := os.Getenv("NEURALIZARD_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".neuralizard"
	}
	return filepath.Join(home, ".neuralizard")
}

// EnvFile is the user-level .env path.
func EnvFile() string {
	return filepath.Join(HomeDir(), ".env")
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LLM.DefaultProvider = strings.ToLower(strings.TrimSpace(cfg.LLM.DefaultProvider))

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.middleware_timeout", "60s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "neuralizard")
	v.SetDefault("database.database", "neuralizard")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "30s")

	// LLM
	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.request_timeout", "120s")
	v.SetDefault("llm.stream_timeout", "5m")
	v.SetDefault("llm.title_timeout", "15s")
	v.SetDefault("llm.ollama.default_model", "llama3")

	// Session
	v.SetDefault("session.context_window", 50)
	v.SetDefault("session.history_limit", 50)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.url", "DB_URL", "DATABASE_URL")
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// LLM API Keys
	v.BindEnv("llm.default_provider", "DEFAULT_PROVIDER")
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.google.api_key", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("llm.mistral.api_key", "MISTRAL_API_KEY")
	v.BindEnv("llm.cohere.api_key", "COHERE_API_KEY")
	v.BindEnv("llm.xai.api_key", "XAI_API_KEY")
	v.BindEnv("llm.deepseek.api_key", "DEEPSEEK_API_KEY")
	v.BindEnv("llm.perplexity.api_key", "PERPLEXITY_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")
}
