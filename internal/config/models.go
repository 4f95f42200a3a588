package config

import "time"

// Config is the complete process configuration.
type Config struct {
	Env       string          `mapstructure:"env" validate:"required,oneof=development test staging production"`
	PortalURL string          `mapstructure:"portalURL" validate:"omitempty,url"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	DB        DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	OTel      OTelConfig      `mapstructure:"otel"`
	Notifiers NotifiersConfig `mapstructure:"notifiers"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
}

type ServerConfig struct {
	Port       int  `mapstructure:"port" validate:"required,min=1,max=65535"`
	RequireTLS bool `mapstructure:"require_tls"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=trace debug info warn error fatal panic disabled"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer" validate:"required"`
	Audience   string        `mapstructure:"audience" validate:"required"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name" validate:"required"`
	SSLMode         string        `mapstructure:"ssl_mode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig configures the API directory cache. An empty URL disables it.
type RedisConfig struct {
	URL string        `mapstructure:"url" validate:"omitempty,url"`
	TTL time.Duration `mapstructure:"ttl"`
}

// PubSubConfig configures cross-process event delivery. An empty project disables it.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	Topic        string `mapstructure:"topic" validate:"required_with=ProjectID"`
	Subscription string `mapstructure:"subscription"`
}

type OTelConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Endpoint       string        `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	SampleRatio    float64       `mapstructure:"sample_ratio" validate:"min=0,max=1"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

type NotifiersConfig struct {
	Email EmailConfig `mapstructure:"email"`
}

// EmailConfig holds the email notifier settings handed to the alert engine.
type EmailConfig struct {
	Host     string         `mapstructure:"host"`
	Port     string         `mapstructure:"port" validate:"omitempty,numeric"`
	Username string         `mapstructure:"username"`
	Password string         `mapstructure:"password"`
	From     string         `mapstructure:"from"`
	StartTLS StartTLSConfig `mapstructure:"starttls"`
	SSL      SSLConfig      `mapstructure:"ssl"`
}

type StartTLSConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type SSLConfig struct {
	TrustAll         bool   `mapstructure:"trustAll"`
	KeyStore         string `mapstructure:"keyStore"`
	KeyStorePassword string `mapstructure:"keyStorePassword"`
}

type AlertsConfig struct {
	Default DefaultAlertsConfig `mapstructure:"default"`
	Sink    SinkConfig          `mapstructure:"sink"`
	Resync  ResyncConfig        `mapstructure:"resync"`
}

type DefaultAlertsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SinkConfig selects the transport for trigger messages.
type SinkConfig struct {
	Kind     string             `mapstructure:"kind" validate:"required,oneof=log http rabbitmq kafka"`
	HTTP     HTTPSinkConfig     `mapstructure:"http"`
	RabbitMQ RabbitMQSinkConfig `mapstructure:"rabbitmq"`
	Kafka    KafkaSinkConfig    `mapstructure:"kafka"`
}

type HTTPSinkConfig struct {
	URL     string        `mapstructure:"url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RabbitMQSinkConfig struct {
	URL          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	ExchangeType string `mapstructure:"exchange_type" validate:"omitempty,oneof=direct fanout topic headers"`
	RoutingKey   string `mapstructure:"routing_key"`
}

type KafkaSinkConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ResyncConfig schedules periodic trigger resynchronization. An empty schedule disables it.
type ResyncConfig struct {
	Schedule string `mapstructure:"schedule"`
}
