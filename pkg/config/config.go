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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Guests        GuestsConfig
	SortSession   SortSessionConfig
	RSVP          RSVPConfig
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
	Env          string `envconfig:"THIEPCUOI_APP_ENV" required:"true"`
	Port         string `envconfig:"THIEPCUOI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THIEPCUOI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THIEPCUOI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"THIEPCUOI_DB_DSN"`
	Driver string `envconfig:"THIEPCUOI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"THIEPCUOI_DB_HOST"`
	LegacyPort     int    `envconfig:"THIEPCUOI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"THIEPCUOI_DB_USER"`
	LegacyPassword string `envconfig:"THIEPCUOI_DB_PASSWORD"`
	LegacyName     string `envconfig:"THIEPCUOI_DB_NAME"`
	LegacySSLMode  string `envconfig:"THIEPCUOI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THIEPCUOI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THIEPCUOI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THIEPCUOI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THIEPCUOI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THIEPCUOI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"THIEPCUOI_REDIS_ADDR"`
	Password     string        `envconfig:"THIEPCUOI_REDIS_PASSWORD"`
	DB           int           `envconfig:"THIEPCUOI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THIEPCUOI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THIEPCUOI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THIEPCUOI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THIEPCUOI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THIEPCUOI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"THIEPCUOI_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"THIEPCUOI_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"THIEPCUOI_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"THIEPCUOI_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"THIEPCUOI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"THIEPCUOI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"THIEPCUOI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"THIEPCUOI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"THIEPCUOI_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"THIEPCUOI_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"THIEPCUOI_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"THIEPCUOI_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RSVPWindow      time.Duration `envconfig:"THIEPCUOI_RSVP_RATE_LIMIT_WINDOW" default:"5m"`
	RSVPIPLimit     int           `envconfig:"THIEPCUOI_RSVP_RATE_LIMIT_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"THIEPCUOI_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"THIEPCUOI_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"THIEPCUOI_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"THIEPCUOI_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"THIEPCUOI_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"THIEPCUOI_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"THIEPCUOI_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type MediaConfig struct {
	ImageMaxBytes int64         `envconfig:"THIEPCUOI_MEDIA_IMAGE_MAX_BYTES" default:"5242880"`
	VideoMaxBytes int64         `envconfig:"THIEPCUOI_MEDIA_VIDEO_MAX_BYTES" default:"52428800"`
	UploadTimeout time.Duration `envconfig:"THIEPCUOI_MEDIA_UPLOAD_TIMEOUT" default:"5m"`
	PendingMaxAge time.Duration `envconfig:"THIEPCUOI_MEDIA_PENDING_MAX_AGE" default:"24h"`
}

type PubSubConfig struct {
	MediaDeletionTopic        string `envconfig:"THIEPCUOI_PUBSUB_MEDIA_DELETION_TOPIC" default:"tc-media-deleted"`
	MediaDeletionSubscription string `envconfig:"THIEPCUOI_PUBSUB_MEDIA_DELETION_SUBSCRIPTION" required:"true"`
	RSVPSubmittedTopic        string `envconfig:"THIEPCUOI_PUBSUB_RSVP_SUBMITTED_TOPIC" default:"tc-rsvp-submitted"`

	// ConsumerIdempotencyTTL bounds how long processed event IDs are
	// remembered in Redis. Pub/Sub redeliveries older than this are
	// handled again, which for object deletion is harmless.
	ConsumerIdempotencyTTL time.Duration `envconfig:"THIEPCUOI_PUBSUB_CONSUMER_IDEMPOTENCY_TTL" default:"72h"`
}

type GuestsConfig struct {
	CacheTTL time.Duration `envconfig:"THIEPCUOI_GUEST_CACHE_TTL" default:"24h"`
}

type SortSessionConfig struct {
	TTL        time.Duration `envconfig:"THIEPCUOI_SORT_SESSION_TTL" default:"2h"`
	MaxHistory int           `envconfig:"THIEPCUOI_SORT_SESSION_MAX_HISTORY" default:"50"`
}

type RSVPConfig struct {
	MaxPartySize int `envconfig:"THIEPCUOI_RSVP_MAX_PARTY_SIZE" default:"10"`
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
