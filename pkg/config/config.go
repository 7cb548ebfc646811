package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Upstream     UpstreamConfig
	Pricing      PricingConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Pricing.PackageFallbackTable(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RERAEASY_APP_ENV" required:"true"`
	Port         string `envconfig:"RERAEASY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RERAEASY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RERAEASY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RERAEASY_DB_DSN"`
	Driver string `envconfig:"RERAEASY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RERAEASY_DB_HOST"`
	LegacyPort     int    `envconfig:"RERAEASY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RERAEASY_DB_USER"`
	LegacyPassword string `envconfig:"RERAEASY_DB_PASSWORD"`
	LegacyName     string `envconfig:"RERAEASY_DB_NAME"`
	LegacySSLMode  string `envconfig:"RERAEASY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RERAEASY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RERAEASY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RERAEASY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RERAEASY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"RERAEASY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RERAEASY_REDIS_ADDR"`
	Password     string        `envconfig:"RERAEASY_REDIS_PASSWORD"`
	DB           int           `envconfig:"RERAEASY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RERAEASY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RERAEASY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RERAEASY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RERAEASY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RERAEASY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies the access tokens issued by the quotation backend.
type JWTConfig struct {
	Secret string `envconfig:"RERAEASY_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"RERAEASY_JWT_ISSUER"`
}

// UpstreamConfig points at the quotation persistence and pricing API.
type UpstreamConfig struct {
	BaseURL string        `envconfig:"RERAEASY_UPSTREAM_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"RERAEASY_UPSTREAM_TIMEOUT" default:"15s"`
}

type PricingConfig struct {
	CacheTTL time.Duration `envconfig:"RERAEASY_PRICING_CACHE_TTL" default:"10m"`
	// PackageFallbackPrices is a comma separated "Package A:200000" list. Empty keeps the
	// built-in table.
	PackageFallbackPrices string `envconfig:"RERAEASY_PACKAGE_FALLBACK_PRICES"`

	RateLimitWindow time.Duration `envconfig:"RERAEASY_PRICING_RATE_LIMIT_WINDOW" default:"1m"`
	IPRateLimit     int           `envconfig:"RERAEASY_PRICING_IP_RATE_LIMIT" default:"120"`
	UserRateLimit   int           `envconfig:"RERAEASY_PRICING_USER_RATE_LIMIT" default:"60"`
}

// PackageFallbackTable parses PackageFallbackPrices. A nil map means "use the defaults".
func (p PricingConfig) PackageFallbackTable() (map[string]decimal.Decimal, error) {
	raw := strings.TrimSpace(p.PackageFallbackPrices)
	if raw == "" {
		return nil, nil
	}
	table := map[string]decimal.Decimal{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, price, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%s: malformed entry %q", EnvPackageFallbackPrices, entry)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil || amount.IsNegative() {
			return nil, fmt.Errorf("%s: invalid price for %q", EnvPackageFallbackPrices, name)
		}
		table[strings.TrimSpace(name)] = amount
	}
	return table, nil
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"RERAEASY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RERAEASY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
