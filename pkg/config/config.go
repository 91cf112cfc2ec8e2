package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/statbricks/mbiz-backend/pkg/enums"
)

const (
	EnvPrefix = "MBIZ"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Billing      BillingConfig
	Paystack     PaystackConfig
	Postmark     PostmarkConfig
	R2            R2Config
	Cron          CronConfig
	CORS          CORSConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MBIZ_APP_ENV" required:"true"`
	Port         string `envconfig:"MBIZ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MBIZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MBIZ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MBIZ_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MBIZ_DB_DSN"`
	Driver string `envconfig:"MBIZ_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MBIZ_DB_HOST"`
	Port     int    `envconfig:"MBIZ_DB_PORT" default:"5432"`
	User     string `envconfig:"MBIZ_DB_USER"`
	Password string `envconfig:"MBIZ_DB_PASSWORD"`
	Name     string `envconfig:"MBIZ_DB_NAME"`
	SSLMode  string `envconfig:"MBIZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MBIZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MBIZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MBIZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MBIZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"MBIZ_DB_HOST": db.Host,
		"MBIZ_DB_USER": db.User,
		"MBIZ_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either MBIZ_DB_DSN or %s are required", strings.Join(missing, ", "))
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

type RedisConfig struct {
	URL          string        `envconfig:"MBIZ_REDIS_URL" required:"true"`
	Password     string        `envconfig:"MBIZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"MBIZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MBIZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MBIZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MBIZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MBIZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MBIZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MBIZ_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MBIZ_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MBIZ_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MBIZ_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MBIZ_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MBIZ_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MBIZ_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MBIZ_ARGON_KEY_LEN" default:"32"`
}

// BillingConfig carries the per-cycle base prices in kobo (minor
// currency units) plus the free trial length granted on registration.
type BillingConfig struct {
	MonthlyPriceKobo   int64 `envconfig:"MBIZ_BILLING_MONTHLY_PRICE_KOBO" default:"500000"`
	QuarterlyPriceKobo int64 `envconfig:"MBIZ_BILLING_QUARTERLY_PRICE_KOBO" default:"1350000"`
	BiannualPriceKobo  int64 `envconfig:"MBIZ_BILLING_BIANNUAL_PRICE_KOBO" default:"2550000"`
	AnnualPriceKobo    int64 `envconfig:"MBIZ_BILLING_ANNUAL_PRICE_KOBO" default:"4800000"`
	TrialDays          int   `envconfig:"MBIZ_BILLING_TRIAL_DAYS" default:"14"`
}

// PriceTable returns the configured base price per billing cycle.
func (b BillingConfig) PriceTable() map[enums.BillingCycle]int64 {
	return map[enums.BillingCycle]int64{
		enums.BillingCycleMonthly:   b.MonthlyPriceKobo,
		enums.BillingCycleQuarterly: b.QuarterlyPriceKobo,
		enums.BillingCycleBiannual:  b.BiannualPriceKobo,
		enums.BillingCycleAnnual:    b.AnnualPriceKobo,
	}
}

type PaystackConfig struct {
	SecretKey     string        `envconfig:"MBIZ_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL       string        `envconfig:"MBIZ_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL   string        `envconfig:"MBIZ_PAYSTACK_CALLBACK_URL"`
	WebhookSecret string        `envconfig:"MBIZ_PAYSTACK_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"MBIZ_PAYSTACK_TIMEOUT" default:"30s"`
}

type PostmarkConfig struct {
	ServerToken string        `envconfig:"MBIZ_POSTMARK_SERVER_TOKEN"`
	BaseURL     string        `envconfig:"MBIZ_POSTMARK_BASE_URL" default:"https://api.postmarkapp.com"`
	FromEmail   string        `envconfig:"MBIZ_POSTMARK_FROM_EMAIL"`
	Timeout     time.Duration `envconfig:"MBIZ_POSTMARK_TIMEOUT" default:"15s"`
}

type R2Config struct {
	AccountID       string `envconfig:"MBIZ_R2_ACCOUNT_ID"`
	AccessKeyID     string `envconfig:"MBIZ_R2_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"MBIZ_R2_SECRET_ACCESS_KEY"`
	Bucket          string `envconfig:"MBIZ_R2_BUCKET"`
	PublicBaseURL   string `envconfig:"MBIZ_R2_PUBLIC_BASE_URL"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"MBIZ_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// AuthRateLimitConfig throttles credential endpoints per source IP and
// per submitted email.
type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"MBIZ_AUTH_RL_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit    int           `envconfig:"MBIZ_AUTH_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"MBIZ_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"8"`

	RegisterWindow     time.Duration `envconfig:"MBIZ_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"MBIZ_AUTH_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"MBIZ_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"3"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MBIZ_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"MBIZ_CRON_LOCK_TTL" default:"55m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MBIZ_AUTO_MIGRATE" default:"false"`
}
