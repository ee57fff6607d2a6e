package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig
	Graph     GraphConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Artifacts ArtifactConfig
	Build     BuildConfig
	Logging   LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int `validate:"min=1,max=65535"`
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// GraphConfig describes connectivity to the Neo4j graph database.
type GraphConfig struct {
	URI            string `validate:"omitempty,uri"`
	Database       string
	Username       string
	Password       string
	MaxConnections int `validate:"min=1"`
	BatchSize      int `validate:"min=1"`
}

// PostgresConfig describes the relational edge sink.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int `validate:"min=1"`
}

// RedisConfig describes the Redis artifact cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int           `validate:"min=0"`
	TTL      time.Duration `validate:"min=0"`
}

// ArtifactConfig selects where the query API reads built artifacts from.
type ArtifactConfig struct {
	Backend string `validate:"oneof=file redis"`
	Dir     string `validate:"required_if=Backend file"`
	Suffix  string `validate:"required"`
	Watch   bool
	Indent  bool
}

// BuildConfig tunes the batch pipeline.
type BuildConfig struct {
	Workers        int `validate:"min=1"`
	PublishWorkers int `validate:"min=1"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string `validate:"omitempty,oneof=text json"`
	IncludeCaller bool
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultGraphBatchSize   = 500
	defaultPostgresConns    = 5
	defaultArtifactBackend  = "file"
	defaultArtifactDir      = "public/jsons"
	defaultArtifactSuffix   = "uALL"
	defaultBuildWorkers     = 4
	defaultPublishWorkers   = 3
)

var validate = validator.New()

// Load reads configuration from environment variables, applying defaults.
// Variables from ENV_FILE, or from .env when ENV_FILE is unset, are loaded
// first without overriding the process environment.
func Load() (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
			BatchSize:      parseIntWithDefault("GRAPH_BATCH_SIZE", defaultGraphBatchSize),
		},
		Postgres: PostgresConfig{
			DSN:          os.Getenv("POSTGRES_DSN"),
			MaxOpenConns: parseIntWithDefault("POSTGRES_MAX_OPEN_CONNS", defaultPostgresConns),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       parseIntWithDefault("REDIS_DB", 0),
		},
		Artifacts: ArtifactConfig{
			Backend: strings.ToLower(valueOrDefault("ARTIFACT_BACKEND", defaultArtifactBackend)),
			Dir:     valueOrDefault("ARTIFACT_DIR", defaultArtifactDir),
			Suffix:  valueOrDefault("ARTIFACT_SUFFIX", defaultArtifactSuffix),
			Watch:   parseBoolWithDefault("ARTIFACT_WATCH", false),
			Indent:  parseBoolWithDefault("ARTIFACT_INDENT", false),
		},
		Build: BuildConfig{
			Workers:        parseIntWithDefault("BUILD_WORKERS", defaultBuildWorkers),
			PublishWorkers: parseIntWithDefault("PUBLISH_WORKERS", defaultPublishWorkers),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"REDIS_TTL", &cfg.Redis.TTL},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.target = parsed
		}
	}

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", false)
	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-section requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatFieldError(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Artifacts.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("invalid config: REDIS_ADDR is required when ARTIFACT_BACKEND=redis")
	}
	return nil
}

// AllowedOrigins splits the CORS origin list.
func (c HTTPConfig) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOriginsCSV, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
