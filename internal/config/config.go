package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

const (
	FeedRabbitMQ = "rabbitmq"
	FeedSTAN     = "stan"
	FeedMemory   = "memory"
)

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
	Feed     FeedConfig     `yaml:"feed" envPrefix:"FEED_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Delivery DeliveryConfig `yaml:"delivery" envPrefix:"DELIVERY_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Database string `yaml:"database" env:"NAME"`
	MaxConns int32  `yaml:"max_conns" env:"MAX_CONNS"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Exchange string `yaml:"exchange" env:"EXCHANGE"`
}

type STANConfig struct {
	ClusterID string `yaml:"cluster_id" env:"CLUSTER_ID"`
	ClientID  string `yaml:"client_id" env:"CLIENT_ID"`
	URL       string `yaml:"url" env:"URL"`
	Subject   string `yaml:"subject" env:"SUBJECT"`
}

// FeedConfig selects the transport carrying order change events.
type FeedConfig struct {
	Transport string     `yaml:"transport" env:"TRANSPORT"`
	Buffer    int        `yaml:"buffer" env:"BUFFER"`
	STAN      STANConfig `yaml:"stan" envPrefix:"STAN_"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret" env:"SECRET"`
	TokenTTL time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
}

type DeliveryConfig struct {
	EstimateHorizon time.Duration `yaml:"estimate_horizon" env:"ESTIMATE_HORIZON"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "orderdesk",
			Database: "orderdesk",
			MaxConns: 10,
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			Exchange: "orders_changes",
		},
		Feed: FeedConfig{
			Transport: FeedRabbitMQ,
			Buffer:    64,
			STAN: STANConfig{
				ClusterID: "test-cluster",
				URL:       "nats://localhost:4222",
				Subject:   "orders.changes",
			},
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
		Delivery: DeliveryConfig{
			EstimateHorizon: 45 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults and then applies environment
// overrides with the ORDERDESK_ prefix. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ORDERDESK_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c Config) Validate() error {
	switch c.Feed.Transport {
	case FeedRabbitMQ, FeedSTAN, FeedMemory:
	default:
		return fmt.Errorf("unknown feed transport %q", c.Feed.Transport)
	}
	if c.Delivery.EstimateHorizon <= 0 {
		return fmt.Errorf("delivery estimate horizon must be positive")
	}
	return nil
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}
