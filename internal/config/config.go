package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Bus      BusConfig
	Broker   BrokerConfig
	Pricing  PricingConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

// BusConfig selects the signal bus store. Backend is "memory" or "mysql".
type BusConfig struct {
	Backend          string
	PollInterval     time.Duration
	MaxWriteAttempts int
}

// BrokerConfig enables change nudges over AMQP. An empty URL disables them.
type BrokerConfig struct {
	URL      string
	Exchange string
}

type PricingConfig struct {
	CouponFile string
}

const (
	BusBackendMemory = "memory"
	BusBackendMySQL  = "mysql"
)

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "masapp")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "masapp")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("BUS_BACKEND", BusBackendMemory)
	viper.SetDefault("BUS_POLL_INTERVAL", "2s")
	viper.SetDefault("BUS_MAX_WRITE_ATTEMPTS", 5)
	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("AMQP_EXCHANGE", "masapp.signals")
	viper.SetDefault("COUPON_FILE", "")

	readTimeout, err := time.ParseDuration(viper.GetString("SERVER_READ_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	writeTimeout, err := time.ParseDuration(viper.GetString("SERVER_WRITE_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := time.ParseDuration(viper.GetString("SERVER_SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}

	pollInterval, err := time.ParseDuration(viper.GetString("BUS_POLL_INTERVAL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            viper.GetInt("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Bus: BusConfig{
			Backend:          viper.GetString("BUS_BACKEND"),
			PollInterval:     pollInterval,
			MaxWriteAttempts: viper.GetInt("BUS_MAX_WRITE_ATTEMPTS"),
		},
		Broker: BrokerConfig{
			URL:      viper.GetString("AMQP_URL"),
			Exchange: viper.GetString("AMQP_EXCHANGE"),
		},
		Pricing: PricingConfig{
			CouponFile: viper.GetString("COUPON_FILE"),
		},
	}

	return cfg, nil
}
