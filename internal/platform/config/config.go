package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	SourceSimulator = "simulator"
	SourceMQTT      = "mqtt"
	SourceKafka     = "kafka"
	SourceNone      = "none"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"5001"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	SessionSecret      string        `env:"SESSION_SECRET"`
	SessionMaxAge      time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	SensorSource            string        `env:"SENSOR_SOURCE" default:"simulator"`
	SensorInterval          time.Duration `env:"SENSOR_INTERVAL" default:"5s"`
	SensorMotionProbability float64       `env:"SENSOR_MOTION_PROBABILITY" default:"0.3"`

	MQTTBrokerURL string `env:"MQTT_BROKER_URL" default:"tcp://localhost:1883"`
	MQTTTopic     string `env:"MQTT_TOPIC" default:"sensors/motion"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" default:"smartcam-backend"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `env:"KAFKA_TOPIC" default:"motion.readings"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" default:"smartcam-backend"`

	// Optional. Without it the last reading is not mirrored.
	RedisURL string `env:"REDIS_URL"`

	WSSendBuffer   int           `env:"WS_SEND_BUFFER" default:"16"`
	WSWriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" default:"5s"`
	WSPingInterval time.Duration `env:"WS_PING_INTERVAL" default:"30s"`

	MaxWebSocketConnections      int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"1000"`
	MaxWebSocketConnectionsPerIP int `env:"MAX_WEBSOCKET_CONNECTIONS_PER_IP" default:"20"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"10"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"20"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}

	switch cfg.SensorSource {
	case SourceSimulator:
		if cfg.SensorInterval <= 0 {
			return errors.New("SENSOR_INTERVAL must be positive")
		}
		if cfg.SensorMotionProbability < 0 || cfg.SensorMotionProbability > 1 {
			return fmt.Errorf("SENSOR_MOTION_PROBABILITY must be between 0 and 1, got %v", cfg.SensorMotionProbability)
		}
	case SourceMQTT:
		if cfg.MQTTBrokerURL == "" || cfg.MQTTTopic == "" {
			return errors.New("MQTT_BROKER_URL and MQTT_TOPIC are required when SENSOR_SOURCE=mqtt")
		}
	case SourceKafka:
		if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "" || cfg.KafkaGroupID == "" {
			return errors.New("KAFKA_BROKERS, KAFKA_TOPIC and KAFKA_GROUP_ID are required when SENSOR_SOURCE=kafka")
		}
	case SourceNone:
	default:
		return fmt.Errorf("SENSOR_SOURCE must be one of simulator, mqtt, kafka, none; got %q", cfg.SensorSource)
	}

	if cfg.WSSendBuffer < 1 {
		return errors.New("WS_SEND_BUFFER must be at least 1")
	}
	if cfg.WSWriteTimeout <= 0 {
		return errors.New("WS_WRITE_TIMEOUT must be positive")
	}
	if cfg.WSPingInterval < 0 {
		return errors.New("WS_PING_INTERVAL must not be negative (0 disables keepalive)")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}
	if cfg.MaxWebSocketConnectionsPerIP < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS_PER_IP must be at least 1")
	}
	if cfg.RateLimitPerSecond <= 0 || cfg.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}

	return nil
}
