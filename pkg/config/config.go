package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable read by Load.
	EnvPrefix = "GARAGE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GARAGE_DB_DSN"
	EnvDBHost = "GARAGE_DB_HOST"
	EnvDBUser = "GARAGE_DB_USER"
	EnvDBName = "GARAGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	VNPay         VNPayConfig
	Payment       PaymentConfig
	SMTP          SMTPConfig
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
	Env          string `envconfig:"GARAGE_APP_ENV" required:"true"`
	Port         string `envconfig:"GARAGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GARAGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GARAGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GARAGE_DB_DSN"`
	Driver string `envconfig:"GARAGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GARAGE_DB_HOST"`
	LegacyPort     int    `envconfig:"GARAGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GARAGE_DB_USER"`
	LegacyPassword string `envconfig:"GARAGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GARAGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GARAGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GARAGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GARAGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GARAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GARAGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GARAGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GARAGE_REDIS_ADDR"`
	Password     string        `envconfig:"GARAGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GARAGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GARAGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GARAGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GARAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GARAGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GARAGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GARAGE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GARAGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GARAGE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GARAGE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GARAGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GARAGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GARAGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GARAGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GARAGE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GARAGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GARAGE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GARAGE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GARAGE_AUTO_MIGRATE" default:"false"`
}

// VNPayConfig carries the merchant credentials for the payment gateway. The
// values are injected into the gateway adapter at construction; nothing reads
// them from ambient state.
type VNPayConfig struct {
	TmnCode    string `envconfig:"GARAGE_VNPAY_TMN_CODE"`
	HashSecret string `envconfig:"GARAGE_VNPAY_HASH_SECRET"`
	PaymentURL string `envconfig:"GARAGE_VNPAY_PAYMENT_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	ReturnURL  string `envconfig:"GARAGE_VNPAY_RETURN_URL"`
	Locale     string `envconfig:"GARAGE_VNPAY_LOCALE" default:"vn"`
}

// PaymentConfig holds checkout policy knobs.
type PaymentConfig struct {
	// RetainUnpaid keeps orders whose gateway payment failed. Deleting them
	// loses the audit trail for the attempt, so retention is the default.
	RetainUnpaid bool `envconfig:"GARAGE_PAYMENT_RETAIN_UNPAID" default:"true"`
}

type SMTPConfig struct {
	Host     string `envconfig:"GARAGE_SMTP_HOST"`
	Port     int    `envconfig:"GARAGE_SMTP_PORT" default:"587"`
	Username string `envconfig:"GARAGE_SMTP_USERNAME"`
	Password string `envconfig:"GARAGE_SMTP_PASSWORD"`
	From     string `envconfig:"GARAGE_SMTP_FROM"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
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
