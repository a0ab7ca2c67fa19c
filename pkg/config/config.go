package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/deliverycart/pkg/enums"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Session      SessionConfig
	Delivery     DeliveryConfig
	OrdersAPI    OrdersAPIConfig
	GoogleMaps   GoogleMapsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Maintenance  MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.App.IsProd() && cfg.FeatureFlags.UseSQLite {
		return nil, fmt.Errorf("%s is not allowed in %s", EnvUseSQLite, AppEnvProd)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Delivery.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DELIVERYCART_APP_ENV" required:"true"`
	Port         string `envconfig:"DELIVERYCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DELIVERYCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DELIVERYCART_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string      `envconfig:"DELIVERYCART_CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout    time.Duration `envconfig:"DELIVERYCART_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DELIVERYCART_DB_DSN"`
	Driver string `envconfig:"DELIVERYCART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"DELIVERYCART_DB_HOST"`
	Port     int    `envconfig:"DELIVERYCART_DB_PORT" default:"5432"`
	User     string `envconfig:"DELIVERYCART_DB_USER"`
	Password string `envconfig:"DELIVERYCART_DB_PASSWORD"`
	Name     string `envconfig:"DELIVERYCART_DB_NAME"`
	SSLMode  string `envconfig:"DELIVERYCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DELIVERYCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DELIVERYCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DELIVERYCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DELIVERYCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DELIVERYCART_REDIS_URL"`
	Address      string        `envconfig:"DELIVERYCART_REDIS_ADDR"`
	Password     string        `envconfig:"DELIVERYCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"DELIVERYCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DELIVERYCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DELIVERYCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DELIVERYCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DELIVERYCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DELIVERYCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DELIVERYCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DELIVERYCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DELIVERYCART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DELIVERYCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DELIVERYCART_AUTO_MIGRATE" default:"false"`
}

// SessionConfig bounds the lifetime of session-scoped state held in Redis.
type SessionConfig struct {
	CartTTL        time.Duration `envconfig:"DELIVERYCART_SESSION_CART_TTL" default:"168h"`
	HandoffTTL     time.Duration `envconfig:"DELIVERYCART_SESSION_HANDOFF_TTL" default:"10m"`
	SubmitGuardTTL time.Duration `envconfig:"DELIVERYCART_SESSION_SUBMIT_GUARD_TTL" default:"45s"`
	CartLockTTL    time.Duration `envconfig:"DELIVERYCART_SESSION_CART_LOCK_TTL" default:"10s"`
	CartLockWait   time.Duration `envconfig:"DELIVERYCART_SESSION_CART_LOCK_WAIT" default:"3s"`
}

// DeliveryConfig carries the fee schedule. Amounts are decimal strings in the store currency.
type DeliveryConfig struct {
	Policy      string        `envconfig:"DELIVERYCART_DELIVERY_FEE_POLICY" default:"floor_replaces"`
	RatePerKm   string        `envconfig:"DELIVERYCART_DELIVERY_RATE_PER_KM" default:"0.50"`
	FloorFee    string        `envconfig:"DELIVERYCART_DELIVERY_FLOOR_FEE" default:"2.00"`
	Threshold   string        `envconfig:"DELIVERYCART_DELIVERY_OVERAGE_THRESHOLD" default:"2.00"`
	FallbackFee string        `envconfig:"DELIVERYCART_DELIVERY_FALLBACK_FEE" default:"5.00"`
	GeoTimeout  time.Duration `envconfig:"DELIVERYCART_DELIVERY_GEO_TIMEOUT" default:"1500ms"`
}

// FeePolicy returns the parsed fee policy.
func (d DeliveryConfig) FeePolicy() enums.FeePolicy {
	policy, err := enums.ParseFeePolicy(strings.TrimSpace(d.Policy))
	if err != nil {
		return enums.FeePolicyFloorReplaces
	}
	return policy
}

// Amounts parses the schedule amounts.
func (d DeliveryConfig) Amounts() (rate, floor, threshold, fallback decimal.Decimal, err error) {
	values := []*decimal.Decimal{&rate, &floor, &threshold, &fallback}
	raw := []string{d.RatePerKm, d.FloorFee, d.Threshold, d.FallbackFee}
	for i, v := range raw {
		parsed, parseErr := decimal.NewFromString(strings.TrimSpace(v))
		if parseErr != nil {
			return rate, floor, threshold, fallback, fmt.Errorf("parsing delivery amount %q: %w", v, parseErr)
		}
		if parsed.IsNegative() {
			return rate, floor, threshold, fallback, fmt.Errorf("delivery amount %q must be non-negative", v)
		}
		*values[i] = parsed
	}
	return rate, floor, threshold, fallback, nil
}

func (d DeliveryConfig) validate() error {
	if _, err := enums.ParseFeePolicy(strings.TrimSpace(d.Policy)); err != nil {
		return err
	}
	_, _, _, _, err := d.Amounts()
	return err
}

type OrdersAPIConfig struct {
	BaseURL string        `envconfig:"DELIVERYCART_ORDERS_API_URL" required:"true"`
	Timeout time.Duration `envconfig:"DELIVERYCART_ORDERS_API_TIMEOUT" default:"20s"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"DELIVERYCART_GOOGLE_MAPS_API_KEY"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"DELIVERYCART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	CheckoutTopic string `envconfig:"DELIVERYCART_PUBSUB_CHECKOUT_TOPIC"`
}

// OutboxConfig tunes cmd/outbox-publisher.
type OutboxConfig struct {
	BatchSize      int `envconfig:"DELIVERYCART_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DELIVERYCART_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DELIVERYCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// MaintenanceConfig drives cmd/cron-worker retention jobs.
type MaintenanceConfig struct {
	Interval         time.Duration `envconfig:"DELIVERYCART_MAINTENANCE_INTERVAL" default:"1h"`
	LockTTL          time.Duration `envconfig:"DELIVERYCART_MAINTENANCE_LOCK_TTL" default:"1h"`
	OutboxRetention  time.Duration `envconfig:"DELIVERYCART_MAINTENANCE_OUTBOX_RETENTION" default:"720h"`
	AttemptRetention time.Duration `envconfig:"DELIVERYCART_MAINTENANCE_ATTEMPT_RETENTION" default:"2160h"`
}

// Enabled reports whether checkout events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.CheckoutTopic) != ""
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbComponentEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
