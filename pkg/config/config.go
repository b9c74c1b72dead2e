package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Region        RegionConfig
	Catalog       CatalogConfig
	Payment       PaymentConfig
	Admin         AdminConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Region.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Payment.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"FARMMARKET_APP_ENV" required:"true"`
	Port         string   `envconfig:"FARMMARKET_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"FARMMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FARMMARKET_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"FARMMARKET_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FARMMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FARMMARKET_DB_DSN"`
	Driver string `envconfig:"FARMMARKET_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FARMMARKET_DB_HOST"`
	Port     int    `envconfig:"FARMMARKET_DB_PORT" default:"5432"`
	User     string `envconfig:"FARMMARKET_DB_USER"`
	Password string `envconfig:"FARMMARKET_DB_PASSWORD"`
	Name     string `envconfig:"FARMMARKET_DB_NAME"`
	SSLMode  string `envconfig:"FARMMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"FARMMARKET_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FARMMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"FARMMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FARMMARKET_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FARMMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FARMMARKET_JWT_EXPIRATION_MINUTES" default:"10080"`
	RefreshTokenTTLMinutes int    `envconfig:"FARMMARKET_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FARMMARKET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FARMMARKET_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FARMMARKET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FARMMARKET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FARMMARKET_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FARMMARKET_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FARMMARKET_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FARMMARKET_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FARMMARKET_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FARMMARKET_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FARMMARKET_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FARMMARKET_AUTO_MIGRATE" default:"false"`
}

// RegionConfig bounds the service area. The box is a coarse approximation of
// the administrative region, not its true outline.
type RegionConfig struct {
	Name   string  `envconfig:"FARMMARKET_REGION_NAME" default:"Maharashtra"`
	MinLat float64 `envconfig:"FARMMARKET_REGION_MIN_LAT" default:"15.6"`
	MaxLat float64 `envconfig:"FARMMARKET_REGION_MAX_LAT" default:"22.0"`
	MinLng float64 `envconfig:"FARMMARKET_REGION_MIN_LNG" default:"72.6"`
	MaxLng float64 `envconfig:"FARMMARKET_REGION_MAX_LNG" default:"80.9"`
}

func (r RegionConfig) validate() error {
	if r.MinLat > r.MaxLat {
		return fmt.Errorf("%s must not exceed %s", EnvRegionMinLat, EnvRegionMaxLat)
	}
	if r.MinLng > r.MaxLng {
		return fmt.Errorf("%s must not exceed %s", EnvRegionMinLng, EnvRegionMaxLng)
	}
	return nil
}

type CatalogConfig struct {
	RadiusKm float64 `envconfig:"FARMMARKET_CATALOG_RADIUS_KM" default:"10"`
}

type PaymentConfig struct {
	Provider  string        `envconfig:"FARMMARKET_PAYMENT_PROVIDER" default:"local"`
	KeyID     string        `envconfig:"FARMMARKET_PAYMENT_KEY_ID"`
	KeySecret string        `envconfig:"FARMMARKET_PAYMENT_KEY_SECRET" required:"true"`
	BaseURL   string        `envconfig:"FARMMARKET_PAYMENT_BASE_URL" default:"https://api.razorpay.com"`
	Currency  string        `envconfig:"FARMMARKET_PAYMENT_CURRENCY" default:"INR"`
	Timeout   time.Duration `envconfig:"FARMMARKET_PAYMENT_TIMEOUT" default:"10s"`
}

// NormalizedProvider returns the lower-cased provider name.
func (p PaymentConfig) NormalizedProvider() string {
	provider := strings.ToLower(strings.TrimSpace(p.Provider))
	if provider == "" {
		return PaymentProviderLocal
	}
	return provider
}

func (p PaymentConfig) validate() error {
	switch p.NormalizedProvider() {
	case PaymentProviderLocal:
		return nil
	case PaymentProviderRazorpay:
		if strings.TrimSpace(p.KeyID) == "" {
			return fmt.Errorf("%s is required for provider %s", EnvPaymentKeyID, PaymentProviderRazorpay)
		}
		return nil
	default:
		return fmt.Errorf("unsupported payment provider %q", p.Provider)
	}
}

// AdminConfig seeds the bootstrap admin account when both values are set.
type AdminConfig struct {
	Email    string `envconfig:"FARMMARKET_ADMIN_EMAIL"`
	Password string `envconfig:"FARMMARKET_ADMIN_PASSWORD"`
	Name     string `envconfig:"FARMMARKET_ADMIN_NAME" default:"Administrator"`
}

// Enabled reports whether a bootstrap admin should be ensured.
func (a AdminConfig) Enabled() bool {
	return strings.TrimSpace(a.Email) != "" && a.Password != ""
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FARMMARKET_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FARMMARKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FARMMARKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"FARMMARKET_PUBSUB_ORDERS_TOPIC" default:"fm-order-events"`
	AccountsTopic string `envconfig:"FARMMARKET_PUBSUB_ACCOUNTS_TOPIC" default:"fm-account-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FARMMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FARMMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FARMMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`

	RetentionDays    int `envconfig:"FARMMARKET_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays int `envconfig:"FARMMARKET_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"FARMMARKET_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"FARMMARKET_CRON_LOCK_TTL" default:"25h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
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
