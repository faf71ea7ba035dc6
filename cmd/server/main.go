package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/httpserver"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/redis"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/app"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/broadcast"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/config"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/logging"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/version"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/sensor"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupStateStore connects to Redis when REDIS_URL is set. The returned health
// check is nil without Redis.
func setupStateStore(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (domain.StateStore, *goredis.Client, *httpserver.HealthCheck) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, last reading will not survive restarts")
		return nil, nil, nil
	}

	storeMetrics := metrics.NewStateStoreMetrics(reg)
	breaker := redis.NewCircuitBreakerHook(redis.DefaultCircuitBreakerConfig(), storeMetrics)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := redis.NewClient(connectCtx, cfg.RedisURL, breaker)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	check := &httpserver.HealthCheck{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
	return redis.NewStateStore(client, storeMetrics), client, check
}

func setupSource(cfg *config.Config, clock clockwork.Clock, m *metrics.SensorMetrics) domain.ReadingSource {
	switch cfg.SensorSource {
	case config.SourceSimulator:
		return sensor.NewSimulator(sensor.SimulatorConfig{
			Interval:          cfg.SensorInterval,
			MotionProbability: cfg.SensorMotionProbability,
		}, clock, m)
	case config.SourceMQTT:
		return sensor.NewMQTTSource(sensor.MQTTConfig{
			BrokerURL: cfg.MQTTBrokerURL,
			Topic:     cfg.MQTTTopic,
			ClientID:  cfg.MQTTClientID,
			QoS:       1,
		}, m)
	case config.SourceKafka:
		src, err := sensor.NewKafkaSource(sensor.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, m)
		if err != nil {
			slog.Error("Failed to create Kafka source", "error", err)
			os.Exit(1)
		}
		return src
	default:
		return nil
	}
}

func runGracefulShutdown(srv *httpserver.Server, engine *broadcast.Engine, stopFeed context.CancelFunc, feedDone <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		stopFeed()
		<-feedDone

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		engine.Shutdown("server shutting down")
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"version", version.Get().Version,
		"sensor_source", cfg.SensorSource,
	)

	reg := metrics.NewRegistry()
	broadcastMetrics := metrics.NewBroadcastMetrics(reg)
	sensorMetrics := metrics.NewSensorMetrics(reg)

	engine := broadcast.NewEngine(
		broadcast.NewRegistry(),
		broadcast.NewStateCache(domain.InitialReading(clock.Now())),
		clock,
		broadcastMetrics,
	)
	acceptor := broadcast.NewAcceptor(engine, broadcast.AcceptorConfig{
		CheckOrigin: broadcast.NewCheckOrigin(cfg.CORSAllowedOrigins, !cfg.IsProduction()),
		Subscriber: broadcast.SubscriberOptions{
			SendBuffer:   cfg.WSSendBuffer,
			WriteTimeout: cfg.WSWriteTimeout,
			PingInterval: cfg.WSPingInterval,
		},
	}, clock, broadcastMetrics)

	store, redisClient, redisCheck := setupStateStore(context.Background(), cfg, reg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	var healthChecks []httpserver.HealthCheck
	if redisCheck != nil {
		healthChecks = append(healthChecks, *redisCheck)
	}

	source := setupSource(cfg, clock, sensorMetrics)
	feed := app.NewFeed(source, engine, store)
	if source != nil {
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "feed", Check: feed.Check})
	}

	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := feed.Restore(restoreCtx); err != nil {
		slog.Warn("Failed to restore last reading, starting from initial reading", "error", err)
	}
	cancelRestore()

	feedCtx, stopFeed := context.WithCancel(context.Background())
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		if source == nil {
			slog.Info("No reading source configured")
			return
		}
		if err := feed.Run(feedCtx); err != nil {
			slog.Error("Reading feed stopped", "error", err)
		}
	}()

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Acceptor:         acceptor,
		Readings:         engine,
		HealthChecks:     healthChecks,
		Registry:         reg,
		BroadcastMetrics: broadcastMetrics,
	})

	done := runGracefulShutdown(srv, engine, stopFeed, feedDone)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
