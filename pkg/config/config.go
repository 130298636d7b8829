package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Firebase FirebaseConfig
	Cron     CronConfig
	Stream   StreamConfig
	Rewards  RewardsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ECOFORGE_APP_ENV" required:"true"`
	Port         string `envconfig:"ECOFORGE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ECOFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ECOFORGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"ECOFORGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ECOFORGE_REDIS_ADDR"`
	Password     string        `envconfig:"ECOFORGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ECOFORGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ECOFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ECOFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ECOFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ECOFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ECOFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ECOFORGE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ECOFORGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ECOFORGE_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"ECOFORGE_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

// FirebaseConfig locates the Realtime Database backing the key tree.
type FirebaseConfig struct {
	DatabaseURL            string `envconfig:"ECOFORGE_FIREBASE_DATABASE_URL" required:"true"`
	ProjectID              string `envconfig:"ECOFORGE_FIREBASE_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ECOFORGE_FIREBASE_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ECOFORGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type CronConfig struct {
	LockTTL               time.Duration `envconfig:"ECOFORGE_CRON_LOCK_TTL" default:"25h"`
	NotificationRetention int           `envconfig:"ECOFORGE_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	BackfillBatchSize     int           `envconfig:"ECOFORGE_CRON_BACKFILL_BATCH_SIZE" default:"200"`
}

type StreamConfig struct {
	Channel    string `envconfig:"ECOFORGE_STREAM_CHANNEL" default:"ecoforge:keytree:events"`
	BufferSize int    `envconfig:"ECOFORGE_STREAM_BUFFER_SIZE" default:"64"`
	Disable    bool   `envconfig:"ECOFORGE_STREAM_DISABLE" default:"false"`
}

// RewardsConfig tunes the gamification ledger. Defaults mirror the product
// rules: 10 XP per recycled unit, 20 XP per donation, a flat bonus for a
// completed project, 100 XP per level.
type RewardsConfig struct {
	RecycleXP       int `envconfig:"ECOFORGE_REWARDS_RECYCLE_XP" default:"10"`
	DonateXP        int `envconfig:"ECOFORGE_REWARDS_DONATE_XP" default:"20"`
	ProjectXP       int `envconfig:"ECOFORGE_REWARDS_PROJECT_XP" default:"50"`
	XPPerLevel      int `envconfig:"ECOFORGE_REWARDS_XP_PER_LEVEL" default:"100"`
	RecycleBadgeAt  int `envconfig:"ECOFORGE_REWARDS_RECYCLE_BADGE_AT" default:"10"`
	DonationBadgeAt int `envconfig:"ECOFORGE_REWARDS_DONATION_BADGE_AT" default:"5"`
	CapstoneLevelAt int `envconfig:"ECOFORGE_REWARDS_CAPSTONE_LEVEL_AT" default:"5"`
}
