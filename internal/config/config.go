package config

import (
	"fmt"
	"net/netip"
	"time"

	pkgconfig "github.com/utafrali/addressbook/pkg/config"
	"github.com/utafrali/addressbook/pkg/database"
	"github.com/utafrali/addressbook/pkg/tracing"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the address service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"ADDRESS_HTTP_PORT" envDefault:"8012"`
	ShutdownTimeout time.Duration `env:"ADDRESS_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// PostgreSQL
	PostgresHost       string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string        `env:"POSTGRES_USER" envDefault:"addressbook"`
	PostgresPass       string        `env:"POSTGRES_PASSWORD" envDefault:"addressbook"`
	PostgresDB         string        `env:"ADDRESS_DB_NAME" envDefault:"address_db"`
	PostgresSSL        string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns   int32         `env:"POSTGRES_MAX_CONNS" envDefault:"25"`
	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`
	RunMigrations      bool          `env:"ADDRESS_RUN_MIGRATIONS" envDefault:"true"`

	// Redis render cache. An empty host disables the cache.
	RedisHost      string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort      int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"ADDRESS_REDIS_DB" envDefault:"0"`
	RenderCacheTTL time.Duration `env:"ADDRESS_RENDER_CACHE_TTL" envDefault:"1h"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	// ConsumeMemberEvents removes the addresses of members deleted upstream.
	ConsumeMemberEvents bool          `env:"ADDRESS_CONSUME_MEMBER_EVENTS" envDefault:"true"`
	ProcessedEventTTL   time.Duration `env:"ADDRESS_PROCESSED_EVENT_TTL" envDefault:"24h"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer string        `env:"JWT_ISSUER"`
	JWTLeeway time.Duration `env:"JWT_LEEWAY" envDefault:"30s"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Stores and address formats. Empty paths use the embedded files.
	StoreFile      string `env:"ADDRESS_STORE_FILE"`
	FormatsFile    string `env:"ADDRESS_FORMATS_FILE"`
	DefaultStoreID int    `env:"ADDRESS_DEFAULT_STORE_ID"`

	// MemberServiceURL, when set, resolves members over HTTP instead of
	// reading tl_member.
	MemberServiceURL string `env:"MEMBER_SERVICE_URL"`

	FormattedMaxAge int      `env:"ADDRESS_FORMATTED_MAX_AGE" envDefault:"60"`
	PprofCIDRs      []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load address config: %w", err)
	}
	return cfg, nil
}

// Validate implements pkgconfig.Validator.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1, got %g", c.OTELSampleRate)
	}
	if c.RenderCacheTTL < 0 {
		return fmt.Errorf("ADDRESS_RENDER_CACHE_TTL must not be negative")
	}
	if c.ConsumeMemberEvents && c.ProcessedEventTTL <= 0 {
		return fmt.Errorf("ADDRESS_PROCESSED_EVENT_TTL must be positive")
	}
	if c.FormattedMaxAge < 0 {
		return fmt.Errorf("ADDRESS_FORMATTED_MAX_AGE must not be negative")
	}
	for _, cidr := range c.PprofCIDRs {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			return fmt.Errorf("invalid PPROF_ALLOWED_CIDRS entry %q: %w", cidr, err)
		}
	}

	// Outside development the JWT secret must be set explicitly and be strong.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}
	return nil
}

// Postgres returns the connection settings of the address database.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	if c.PostgresMaxConns > 0 {
		pg.MaxConns = c.PostgresMaxConns
		pg.MinConns = min(pg.MinConns, c.PostgresMaxConns)
	}
	return pg
}

// Redis returns the render cache connection settings.
func (c *Config) Redis() database.RedisConfig {
	r := database.DefaultRedisConfig()
	r.Host = c.RedisHost
	r.Port = c.RedisPort
	r.Password = c.RedisPassword
	r.DB = c.RedisDB
	return r
}

// RenderCacheEnabled reports whether formatted addresses are cached in Redis.
func (c *Config) RenderCacheEnabled() bool {
	return c.RedisHost != "" && c.RenderCacheTTL > 0
}

// Tracing returns the tracer settings for serviceName.
func (c *Config) Tracing(serviceName string) tracing.Config {
	t := tracing.DefaultConfig(serviceName)
	t.Environment = c.Environment
	t.Enabled = c.OTELEnabled
	t.OTLPEndpoint = c.OTELEndpoint
	t.Insecure = c.OTELInsecure
	t.SampleRate = c.OTELSampleRate
	return t
}
