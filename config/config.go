package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

type RabbitMQConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Queue      string `mapstructure:"queue"`
	RoutingKey string `mapstructure:"routing_key"`
	Enabled    bool   `mapstructure:"enabled"`
}

type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"required"`
}

// ProgramsConfig pins the on-ledger identities the bridge operates with.
// Addresses are base58.
type ProgramsConfig struct {
	RoundLoader      string `mapstructure:"round_loader" validate:"required"`
	TokenProxy       string `mapstructure:"token_proxy" validate:"required"`
	Token            string `mapstructure:"token" validate:"required"`
	UpgradeAuthority string `mapstructure:"upgrade_authority" validate:"required"`
}

type EventBusConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	API      APIConfig      `mapstructure:"api"`
	Programs ProgramsConfig `mapstructure:"programs"`
	EventBus EventBusConfig `mapstructure:"event_bus"`
	LogLevel string         `mapstructure:"log_level"`
}

var GlobalConfig *Config

// Load reads config/<env>.yaml, lets environment variables override file
// values, and validates the result.
func Load(env string) error {
	viper.SetConfigName(env)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config for env %q: %w", env, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	GlobalConfig = &cfg
	return nil
}
