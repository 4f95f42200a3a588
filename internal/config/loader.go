// Package config loads process configuration from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Loader reads and watches configuration.
// Environment variables use the key with dots replaced by underscores,
// so notifiers.email.host is read from NOTIFIERS_EMAIL_HOST.
type Loader struct {
	v      *viper.Viper
	path   string
	logger zerolog.Logger
}

// NewLoader creates a loader. An empty path reads the environment only.
func NewLoader(path string, logger zerolog.Logger) *Loader {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Loader{v: v, path: path, logger: logger}
}

// Load reads the configuration file and environment, then validates the result.
func Load(path string, logger zerolog.Logger) (*Config, error) {
	return NewLoader(path, logger).Load()
}

// Load reads the configuration file, if any, and returns the validated configuration.
func (l *Loader) Load() (*Config, error) {
	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

// Watch calls onChange with the new configuration each time the file changes.
// Invalid configurations are logged and skipped. Without a file Watch does nothing.
func (l *Loader) Watch(onChange func(*Config)) {
	if l.path == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			l.logger.Error().Err(err).Str("file", e.Name).Msg("ignoring invalid configuration change")
			return
		}
		l.logger.Info().Str("file", e.Name).Msg("configuration reloaded")
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so that environment variables bind during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("portalURL", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.require_tls", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "gatewayplane")
	v.SetDefault("auth.audience", "gatewayplane-management")
	v.SetDefault("auth.token_ttl", "15m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "gatewayplane")
	v.SetDefault("db.password", "localdev")
	v.SetDefault("db.name", "gatewayplane")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "5m")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", "5m")

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "api-events")
	v.SetDefault("pubsub.subscription", "api-events-alerts")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.export_interval", "15s")

	v.SetDefault("notifiers.email.host", "")
	v.SetDefault("notifiers.email.port", "")
	v.SetDefault("notifiers.email.username", "")
	v.SetDefault("notifiers.email.password", "")
	v.SetDefault("notifiers.email.from", "")
	v.SetDefault("notifiers.email.starttls.enabled", false)
	v.SetDefault("notifiers.email.ssl.trustAll", false)
	v.SetDefault("notifiers.email.ssl.keyStore", "")
	v.SetDefault("notifiers.email.ssl.keyStorePassword", "")

	v.SetDefault("alerts.default.enabled", false)
	v.SetDefault("alerts.sink.kind", "log")
	v.SetDefault("alerts.sink.http.url", "")
	v.SetDefault("alerts.sink.http.timeout", "10s")
	v.SetDefault("alerts.sink.rabbitmq.url", "")
	v.SetDefault("alerts.sink.rabbitmq.exchange", "alerts")
	v.SetDefault("alerts.sink.rabbitmq.exchange_type", "topic")
	v.SetDefault("alerts.sink.rabbitmq.routing_key", "alert.trigger")
	v.SetDefault("alerts.sink.kafka.brokers", []string{})
	v.SetDefault("alerts.sink.kafka.topic", "alert-triggers")
	v.SetDefault("alerts.resync.schedule", "")
}

func validateConfig(cfg *Config) error {
	validate := validator.New()
	validate.RegisterStructValidation(validateSink, SinkConfig{})

	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return formatValidationErrors(ve)
		}
		return err
	}
	return nil
}

// validateSink requires the settings of the selected sink kind.
func validateSink(sl validator.StructLevel) {
	sink := sl.Current().Interface().(SinkConfig)

	switch sink.Kind {
	case "http":
		if sink.HTTP.URL == "" {
			sl.ReportError(sink.HTTP.URL, "HTTP.URL", "URL", "required_for_kind", "")
		}
	case "rabbitmq":
		if sink.RabbitMQ.URL == "" {
			sl.ReportError(sink.RabbitMQ.URL, "RabbitMQ.URL", "URL", "required_for_kind", "")
		}
		if sink.RabbitMQ.Exchange == "" {
			sl.ReportError(sink.RabbitMQ.Exchange, "RabbitMQ.Exchange", "Exchange", "required_for_kind", "")
		}
	case "kafka":
		if len(sink.Kafka.Brokers) == 0 {
			sl.ReportError(sink.Kafka.Brokers, "Kafka.Brokers", "Brokers", "required_for_kind", "")
		}
		if sink.Kafka.Topic == "" {
			sl.ReportError(sink.Kafka.Topic, "Kafka.Topic", "Topic", "required_for_kind", "")
		}
	}
}

func formatValidationErrors(ve validator.ValidationErrors) error {
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")

	for _, fe := range ve {
		fmt.Fprintf(&sb, "- field '%s' failed on '%s'\n", fe.Namespace(), fe.Tag())
	}
	return errors.New(sb.String())
}
