package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Access       AccessConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STUDYLOOP_APP_ENV" required:"true"`
	Port         string `envconfig:"STUDYLOOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STUDYLOOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STUDYLOOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

type ServiceConfig struct {
	Kind string `envconfig:"STUDYLOOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STUDYLOOP_DB_DSN"`
	Driver string `envconfig:"STUDYLOOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STUDYLOOP_DB_HOST"`
	LegacyPort     int    `envconfig:"STUDYLOOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STUDYLOOP_DB_USER"`
	LegacyPassword string `envconfig:"STUDYLOOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"STUDYLOOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"STUDYLOOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STUDYLOOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STUDYLOOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STUDYLOOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STUDYLOOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STUDYLOOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STUDYLOOP_REDIS_ADDR"`
	Password     string        `envconfig:"STUDYLOOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"STUDYLOOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STUDYLOOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STUDYLOOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STUDYLOOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STUDYLOOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STUDYLOOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STUDYLOOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STUDYLOOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STUDYLOOP_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STUDYLOOP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessConfig tunes the access-code entitlement engine.
type AccessConfig struct {
	// CodeTTL is how long an unredeemed code stays redeemable when the
	// creator does not supply an explicit expiry.
	CodeTTL time.Duration `envconfig:"STUDYLOOP_ACCESS_CODE_TTL" default:"2160h"`
	// AdminHorizon is the access window granted to privileged principals.
	AdminHorizon time.Duration `envconfig:"STUDYLOOP_ACCESS_ADMIN_HORIZON" default:"8760h"`
	// MaxBatchSize caps how many codes one generate request may mint.
	MaxBatchSize int `envconfig:"STUDYLOOP_ACCESS_MAX_BATCH_SIZE" default:"200"`

	// Redemption throttling. Codes are guessable strings, so redeem
	// endpoints carry per-IP and per-user counters.
	RedeemWindow    time.Duration `envconfig:"STUDYLOOP_ACCESS_REDEEM_WINDOW" default:"1m"`
	RedeemIPLimit   int           `envconfig:"STUDYLOOP_ACCESS_REDEEM_IP_LIMIT" default:"30"`
	RedeemUserLimit int           `envconfig:"STUDYLOOP_ACCESS_REDEEM_USER_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STUDYLOOP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STUDYLOOP_AUTO_MIGRATE" default:"false"`
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
