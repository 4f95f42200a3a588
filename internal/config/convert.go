package config

import (
	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/alert"
	"github.com/gatewayplane/gatewayplane/internal/alert/sink"
	"github.com/gatewayplane/gatewayplane/internal/database"
	"github.com/gatewayplane/gatewayplane/internal/resilience"
	"github.com/gatewayplane/gatewayplane/internal/telemetry"
)

// AlertSettings returns the settings used to build health-check triggers.
// Empty keystore entries are reported as unset.
func (c *Config) AlertSettings() alert.Settings {
	email := c.Notifiers.Email
	return alert.Settings{
		PortalURL: c.PortalURL,
		Email: alert.EmailSettings{
			Host:                email.Host,
			Port:                email.Port,
			Username:            email.Username,
			Password:            email.Password,
			From:                email.From,
			StartTLSEnabled:     email.StartTLS.Enabled,
			SSLTrustAll:         email.SSL.TrustAll,
			SSLKeyStore:         optional(email.SSL.KeyStore),
			SSLKeyStorePassword: optional(email.SSL.KeyStorePassword),
		},
	}
}

// SinkConfig returns the alert sink configuration.
func (c *Config) SinkConfig(registry *resilience.Registry) sink.Config {
	s := c.Alerts.Sink
	return sink.Config{
		Kind: s.Kind,
		HTTP: sink.HTTPConfig{
			URL:     s.HTTP.URL,
			Timeout: s.HTTP.Timeout,
		},
		RabbitMQ: sink.RabbitMQConfig{
			URL:          s.RabbitMQ.URL,
			Exchange:     s.RabbitMQ.Exchange,
			ExchangeType: s.RabbitMQ.ExchangeType,
			RoutingKey:   s.RabbitMQ.RoutingKey,
		},
		Kafka: sink.KafkaConfig{
			Brokers: s.Kafka.Brokers,
			Topic:   s.Kafka.Topic,
		},
		Registry: registry,
	}
}

// DatabaseConfig returns the PostgreSQL connection settings.
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Host:            c.DB.Host,
		Port:            c.DB.Port,
		User:            c.DB.User,
		Password:        c.DB.Password,
		Database:        c.DB.Name,
		SSLMode:         c.DB.SSLMode,
		MaxOpenConns:    c.DB.MaxOpenConns,
		MaxIdleConns:    c.DB.MaxIdleConns,
		ConnMaxLifetime: c.DB.ConnMaxLifetime,
	}
}

// TelemetryConfig returns the OpenTelemetry settings for the named service.
func (c *Config) TelemetryConfig(serviceName, version string) telemetry.Config {
	return telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Env,
		OTLPEndpoint:   c.OTel.Endpoint,
		Enabled:        c.OTel.Enabled,
		SampleRatio:    c.OTel.SampleRatio,
		ExportInterval: c.OTel.ExportInterval,
	}
}

// LogLevel returns the configured log level, falling back to info.
func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
