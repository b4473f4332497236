package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Audit    AuditConfig    `yaml:"audit"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

type HTTPConfig struct {
	Address             string `yaml:"address"`
	SwaggerDir          string `yaml:"swagger_dir"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_seconds"`
}

type StorageConfig struct {
	Driver  string `yaml:"driver"`
	Migrate bool   `yaml:"migrate"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig selects the availability cache; an empty Addr falls back to
// the in-process cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig configures the notification transport; with no brokers the
// events are handled in-process.
type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
	PublishRetries     int      `yaml:"publish_retries"`
	// DeadLetterTopic receives notifications the worker gave up on; empty
	// means they are logged and dropped.
	DeadLetterTopic string `yaml:"dead_letter_topic"`
}

type AuthConfig struct {
	AdminSecret     string `yaml:"admin_secret"`
	PassengerSecret string `yaml:"passenger_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

type BookingConfig struct {
	QuotaCacheTTLSeconds int `yaml:"quota_cache_ttl_seconds"`
	TicketAttempts       int `yaml:"ticket_attempts"`
	NotifyBuffer         int `yaml:"notify_buffer"`
	RateLimitPerMinute   int `yaml:"rate_limit_per_minute"`
	RateLimitBurst       int `yaml:"rate_limit_burst"`
}

type AuditConfig struct {
	Buffer int `yaml:"buffer"`
}

type WorkerConfig struct {
	TicketsDir         string `yaml:"tickets_dir"`
	DeliveryAttempts   int    `yaml:"delivery_attempts"`
	RetryBackoffMillis int    `yaml:"retry_backoff_ms"`
}

func (c WorkerConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

func (c BookingConfig) QuotaCacheTTL() time.Duration {
	return time.Duration(c.QuotaCacheTTLSeconds) * time.Second
}

func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

// LoadConfig reads the YAML file at path, expanding ${VAR} references from
// the environment, then applies defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.ShutdownTimeoutSecs <= 0 {
		c.HTTP.ShutdownTimeoutSecs = 5
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StoragePostgres
	}
	if c.Kafka.BookingEventsTopic == "" {
		c.Kafka.BookingEventsTopic = "booking-events"
	}
	if c.Kafka.NotificationsTopic == "" {
		c.Kafka.NotificationsTopic = "booking-notifications"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "heliseats-worker"
	}
	if c.Kafka.PublishRetries <= 0 {
		c.Kafka.PublishRetries = 3
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		c.Auth.TokenTTLMinutes = 120
	}
	if c.Booking.QuotaCacheTTLSeconds <= 0 {
		c.Booking.QuotaCacheTTLSeconds = 30
	}
	if c.Booking.TicketAttempts <= 0 {
		c.Booking.TicketAttempts = 5
	}
	if c.Booking.NotifyBuffer <= 0 {
		c.Booking.NotifyBuffer = 256
	}
	if c.Booking.RateLimitPerMinute <= 0 {
		c.Booking.RateLimitPerMinute = 1
	}
	if c.Booking.RateLimitBurst <= 0 {
		c.Booking.RateLimitBurst = 10
	}
	if c.Audit.Buffer <= 0 {
		c.Audit.Buffer = 512
	}
	if c.Worker.TicketsDir == "" {
		c.Worker.TicketsDir = "tickets"
	}
	if c.Worker.DeliveryAttempts <= 0 {
		c.Worker.DeliveryAttempts = 5
	}
	if c.Worker.RetryBackoffMillis <= 0 {
		c.Worker.RetryBackoffMillis = 500
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Storage.Driver))
	}
	if c.Storage.Driver == StoragePostgres && c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required for the postgres driver"))
	}
	if c.Auth.AdminSecret == "" || c.Auth.PassengerSecret == "" {
		errs = append(errs, errors.New("auth.admin_secret and auth.passenger_secret are required"))
	}
	if c.Auth.AdminSecret != "" && c.Auth.AdminSecret == c.Auth.PassengerSecret {
		errs = append(errs, errors.New("auth secrets for admins and passengers must differ"))
	}
	return errors.Join(errs...)
}
