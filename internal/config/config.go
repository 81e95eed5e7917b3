package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const EnvProduction = "production"

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Argon2Config struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

type ThrottleConfig struct {
	MaxAttempts int
	Window      time.Duration
}

type SecurityConfig struct {
	JWTSecret    string
	JWTIssuer    string
	JWTAccessTTL time.Duration
	Argon2       Argon2Config

	// Lifetimes of the one-time tokens handed out for e-mail verification and password reset.
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration

	RevokeSessionsOnPasswordChange bool
	LoginThrottle                  ThrottleConfig
}

type QueueConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type WorkerConfig struct {
	// MetricsAddr is where the worker serves /metrics; empty disables it.
	MetricsAddr string
}

type JobsConfig struct {
	SessionSweepSchedule string
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Queue            QueueConfig
	Worker           WorkerConfig
	Jobs             JobsConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

var ErrMissingJWTSecret = errors.New("security.jwtsecret must be set in production")

func (c *AppConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("EDUPLATFORM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that cannot be defaulted. Outside production a
// missing JWT secret is replaced with a random one and generated is true.
func (c *AppConfig) Validate() (generated bool, err error) {
	if c.Security.JWTSecret == "" {
		if c.IsProduction() {
			return false, ErrMissingJWTSecret
		}
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return false, fmt.Errorf("generate jwt secret: %w", err)
		}
		c.Security.JWTSecret = hex.EncodeToString(secret)
		generated = true
	}
	if c.Security.JWTAccessTTL <= 0 {
		return generated, fmt.Errorf("security.jwtaccessttl must be positive, got %s", c.Security.JWTAccessTTL)
	}
	if c.Postgres.DSN == "" && c.IsProduction() {
		return generated, errors.New("postgres.dsn must be set in production")
	}
	return generated, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.jwtissuer", "eduplatform")
	v.SetDefault("security.jwtaccessttl", "3600s")
	v.SetDefault("security.argon2.time", 3)
	v.SetDefault("security.argon2.memory", 64*1024)
	v.SetDefault("security.argon2.threads", 2)
	v.SetDefault("security.argon2.keylen", 32)
	v.SetDefault("security.argon2.saltlen", 16)
	v.SetDefault("security.verifytokenttl", "24h")
	v.SetDefault("security.resettokenttl", "1h")
	v.SetDefault("security.revokesessionsonpasswordchange", false)
	v.SetDefault("security.loginthrottle.maxattempts", 20)
	v.SetDefault("security.loginthrottle.window", "1m")

	v.SetDefault("queue.stream", "auth:maintenance")
	v.SetDefault("queue.group", "auth-workers")
	v.SetDefault("queue.consumer", "worker-1")
	v.SetDefault("queue.claiminterval", "10s")

	v.SetDefault("worker.metricsaddr", "0.0.0.0:9091")

	v.SetDefault("jobs.sessionsweepschedule", "0 0 * * * *")

	v.SetDefault("logging.level", "info")

	v.SetDefault("allowcorsorigins", []string{})
}
