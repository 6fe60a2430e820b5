package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"time"

	"lastmile/internal/core/domain/services"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Subscription sources selectable with SYNC_MODE.
const (
	SyncModePush = "push"
	SyncModePoll = "poll"
)

// Config is read from the environment. A .env file, when present, fills
// variables that are not already set.
//
// Tags:
//   - mapstructure: the environment variable
//   - default: value used when the variable is unset
//   - required: "true" rejects an empty value
type Config struct {
	Environment string `mapstructure:"APP_ENV" default:"development"`
	LogLevel    string `mapstructure:"LOG_LEVEL" default:"info"`
	HTTPPort    string `mapstructure:"HTTP_PORT" default:"8080"`

	Database DatabaseConfig `mapstructure:",squash"`
	Kafka    KafkaConfig    `mapstructure:",squash"`
	Sync     SyncConfig     `mapstructure:",squash"`

	RedisURL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`
	// SessionTTL bounds how long a resolved profile is cached.
	SessionTTL time.Duration `mapstructure:"SESSION_TTL" default:"10m"`
	// PendingTabMode is "legacy" or "strict".
	PendingTabMode  string `mapstructure:"PENDING_TAB_MODE" default:"legacy"`
	ConflictRetries int    `mapstructure:"CONFLICT_RETRIES" default:"3"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"DB_HOST" default:"localhost"`
	Port     int    `mapstructure:"DB_PORT" default:"5432"`
	User     string `mapstructure:"DB_USER" required:"true"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME" required:"true"`
	SslMode  string `mapstructure:"DB_SSLMODE" default:"disable"`
}

// KafkaConfig configures the order-changed publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers           []string `mapstructure:"KAFKA_BROKERS"`
	OrderChangedTopic string   `mapstructure:"KAFKA_ORDER_CHANGED_TOPIC" default:"order.changed"`
}

type SyncConfig struct {
	Mode         string        `mapstructure:"SYNC_MODE" default:"push"`
	PollInterval time.Duration `mapstructure:"SYNC_POLL_INTERVAL" default:"5s"`
}

// DSN returns the key/value connection string understood by both lib/pq
// and pgx.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SslMode)
}

// LoadConfig loads dir/.env, if any, and decodes the environment.
func LoadConfig(dir string) (Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	var cfg Config
	bindEnv(v, reflect.TypeOf(cfg))

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := checkRequired(reflect.ValueOf(cfg)); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Sync.Mode != SyncModePush && c.Sync.Mode != SyncModePoll {
		return fmt.Errorf("SYNC_MODE must be %q or %q, got %q", SyncModePush, SyncModePoll, c.Sync.Mode)
	}
	// cron schedules have one second resolution
	if c.Sync.PollInterval < time.Second {
		return fmt.Errorf("SYNC_POLL_INTERVAL must be at least 1s, got %s", c.Sync.PollInterval)
	}
	if _, err := services.ParsePendingMode(c.PendingTabMode); err != nil {
		return fmt.Errorf("PENDING_TAB_MODE: %w", err)
	}
	if c.ConflictRetries < 0 {
		return fmt.Errorf("CONFLICT_RETRIES must not be negative, got %d", c.ConflictRetries)
	}
	return nil
}

// bindEnv registers every tagged field with viper so that Unmarshal sees
// variables that only exist in the environment.
func bindEnv(v *viper.Viper, t reflect.Type) {
	for i := range t.NumField() {
		field := t.Field(i)
		if field.Type.Kind() == reflect.Struct {
			bindEnv(v, field.Type)
			continue
		}

		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		_ = v.BindEnv(key)
		if def, ok := field.Tag.Lookup("default"); ok {
			v.SetDefault(key, def)
		}
	}
}

func checkRequired(val reflect.Value) error {
	t := val.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if field.Type.Kind() == reflect.Struct {
			if err := checkRequired(val.Field(i)); err != nil {
				return err
			}
			continue
		}
		if field.Tag.Get("required") == "true" && val.Field(i).IsZero() {
			return fmt.Errorf("missing required configuration: %s", field.Tag.Get("mapstructure"))
		}
	}
	return nil
}
