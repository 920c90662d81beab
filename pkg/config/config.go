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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	YooKassa     YooKassaConfig
	SMTP         SMTPConfig
	Storage      StorageConfig
	Download     DownloadConfig
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
	Env          string `envconfig:"PROFFMUSIC_APP_ENV" required:"true"`
	Port         string `envconfig:"PROFFMUSIC_APP_PORT" required:"true"`
	SiteURL      string `envconfig:"PROFFMUSIC_SITE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"PROFFMUSIC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROFFMUSIC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PROFFMUSIC_DB_DSN"`
	Driver string `envconfig:"PROFFMUSIC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PROFFMUSIC_DB_HOST"`
	LegacyPort     int    `envconfig:"PROFFMUSIC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PROFFMUSIC_DB_USER"`
	LegacyPassword string `envconfig:"PROFFMUSIC_DB_PASSWORD"`
	LegacyName     string `envconfig:"PROFFMUSIC_DB_NAME"`
	LegacySSLMode  string `envconfig:"PROFFMUSIC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROFFMUSIC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROFFMUSIC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROFFMUSIC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROFFMUSIC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PROFFMUSIC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PROFFMUSIC_REDIS_ADDR"`
	Password     string        `envconfig:"PROFFMUSIC_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROFFMUSIC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROFFMUSIC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROFFMUSIC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROFFMUSIC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROFFMUSIC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROFFMUSIC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"PROFFMUSIC_JWT_SECRET"`
	Issuer string `envconfig:"PROFFMUSIC_JWT_ISSUER" default:"proffmusic"`
}

// YooKassaConfig carries the hosted-payment credentials. When ShopID or
// SecretKey is empty the gateway adapter runs in mock mode.
type YooKassaConfig struct {
	ShopID        string        `envconfig:"PROFFMUSIC_YOOKASSA_SHOP_ID"`
	SecretKey     string        `envconfig:"PROFFMUSIC_YOOKASSA_SECRET_KEY"`
	ReturnURL     string        `envconfig:"PROFFMUSIC_YOOKASSA_RETURN_URL" default:"http://localhost:3000/success"`
	Currency      string        `envconfig:"PROFFMUSIC_YOOKASSA_CURRENCY" default:"RUB"`
	HTTPTimeout   time.Duration `envconfig:"PROFFMUSIC_YOOKASSA_HTTP_TIMEOUT" default:"15s"`
	EventDedupTTL time.Duration `envconfig:"PROFFMUSIC_YOOKASSA_EVENT_DEDUP_TTL" default:"72h"`
}

// Configured reports whether real provider credentials are present.
func (y YooKassaConfig) Configured() bool {
	return strings.TrimSpace(y.ShopID) != "" && strings.TrimSpace(y.SecretKey) != ""
}

type SMTPConfig struct {
	Host        string `envconfig:"PROFFMUSIC_SMTP_HOST"`
	Port        int    `envconfig:"PROFFMUSIC_SMTP_PORT" default:"587"`
	Username    string `envconfig:"PROFFMUSIC_SMTP_USERNAME"`
	Password    string `envconfig:"PROFFMUSIC_SMTP_PASSWORD"`
	DefaultFrom string `envconfig:"PROFFMUSIC_SMTP_FROM_EMAIL" default:"noreply@proffmusic.ru"`
}

type StorageConfig struct {
	ProtectedRoot string `envconfig:"PROFFMUSIC_PROTECTED_MEDIA_ROOT" required:"true"`
	PublicRoot    string `envconfig:"PROFFMUSIC_PUBLIC_MEDIA_ROOT" required:"true"`
	// Archives larger than this spill to a temp file instead of memory.
	ArchiveMemoryLimitMB int `envconfig:"PROFFMUSIC_ARCHIVE_MEMORY_LIMIT_MB" default:"256"`
}

type DownloadConfig struct {
	TokenTTL  time.Duration `envconfig:"PROFFMUSIC_DOWNLOAD_TOKEN_TTL" default:"48h"`
	MaxUsages int           `envconfig:"PROFFMUSIC_DOWNLOAD_MAX_USAGES" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PROFFMUSIC_AUTO_MIGRATE" default:"false"`
	// Forces the mock payment redirect even when credentials are set.
	ForceMockPayments bool `envconfig:"PROFFMUSIC_FORCE_MOCK_PAYMENTS" default:"false"`
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
