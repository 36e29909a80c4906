package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/brickyield/brickyield-backend/pkg/enums"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "brickyield"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BRICKYIELD_DB_DSN"
	EnvDBHost = "BRICKYIELD_DB_HOST"
	EnvDBUser = "BRICKYIELD_DB_USER"
	EnvDBName = "BRICKYIELD_DB_NAME"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Distribution DistributionConfig
	Registry     RegistryConfig
	Vault        VaultConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	if err := cfg.Distribution.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BRICKYIELD_APP_ENV" required:"true"`
	Port         string `envconfig:"BRICKYIELD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRICKYIELD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRICKYIELD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BRICKYIELD_DB_DSN"`
	Driver string `envconfig:"BRICKYIELD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BRICKYIELD_DB_HOST"`
	LegacyPort     int    `envconfig:"BRICKYIELD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRICKYIELD_DB_USER"`
	LegacyPassword string `envconfig:"BRICKYIELD_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRICKYIELD_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRICKYIELD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRICKYIELD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRICKYIELD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRICKYIELD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRICKYIELD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRICKYIELD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRICKYIELD_REDIS_ADDR"`
	Password     string        `envconfig:"BRICKYIELD_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRICKYIELD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRICKYIELD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRICKYIELD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRICKYIELD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRICKYIELD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRICKYIELD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// DistributionConfig tunes the distribution ledger itself.
type DistributionConfig struct {
	// ClaimGracePeriod is how long after finalization a round must stay open
	// before the owner may force-close it and sweep unclaimed funds.
	ClaimGracePeriod time.Duration `envconfig:"BRICKYIELD_DIST_CLAIM_GRACE_PERIOD" default:"2160h"`
	// DustPolicy selects carry_forward (default) or sweep for the
	// integer-division remainder of each round.
	DustPolicy string `envconfig:"BRICKYIELD_DIST_DUST_POLICY" default:"carry_forward"`
}

func (d DistributionConfig) validate() error {
	if _, err := enums.ParseDustPolicy(d.DustPolicy); err != nil {
		return fmt.Errorf("BRICKYIELD_DIST_DUST_POLICY: %w", err)
	}
	if d.ClaimGracePeriod <= 0 {
		return fmt.Errorf("BRICKYIELD_DIST_CLAIM_GRACE_PERIOD must be positive")
	}
	return nil
}

// Policy returns the parsed dust policy.
func (d DistributionConfig) Policy() enums.DustPolicy {
	policy, err := enums.ParseDustPolicy(d.DustPolicy)
	if err != nil {
		return enums.DustPolicyCarryForward
	}
	return policy
}

// RegistryConfig locates the external share registry service.
type RegistryConfig struct {
	BaseURL string        `envconfig:"BRICKYIELD_REGISTRY_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"BRICKYIELD_REGISTRY_TIMEOUT" default:"10s"`
}

// VaultConfig locates the external stable asset custody service.
type VaultConfig struct {
	BaseURL string        `envconfig:"BRICKYIELD_VAULT_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"BRICKYIELD_VAULT_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BRICKYIELD_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BRICKYIELD_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BRICKYIELD_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DistributionTopic        string `envconfig:"BRICKYIELD_PUBSUB_DISTRIBUTION_TOPIC" default:"distribution-events"`
	DistributionSubscription string `envconfig:"BRICKYIELD_PUBSUB_DISTRIBUTION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize        int `envconfig:"BRICKYIELD_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS   int `envconfig:"BRICKYIELD_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts      int `envconfig:"BRICKYIELD_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishTimeoutMS int `envconfig:"BRICKYIELD_OUTBOX_PUBLISH_TIMEOUT_MS" default:"15000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BRICKYIELD_AUTO_MIGRATE" default:"false"`
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
	for _, env := range []string{EnvDBHost, EnvDBUser, EnvDBName} {
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
