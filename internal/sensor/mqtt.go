package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttDisconnectQuiesceMs = 250

type MQTTConfig struct {
	BrokerURL string
	Topic     string
	ClientID  string
	QoS       byte
}

// MQTTSource subscribes to a topic where motion devices publish readings as JSON.
type MQTTSource struct {
	cfg       MQTTConfig
	metrics   *metrics.SensorMetrics
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

func NewMQTTSource(cfg MQTTConfig, m *metrics.SensorMetrics) *MQTTSource {
	return &MQTTSource{cfg: cfg, metrics: m, newClient: mqtt.NewClient}
}

// Run connects to the broker and forwards readings until ctx is cancelled.
// The subscription is renewed on every (re)connect.
func (s *MQTTSource) Run(ctx context.Context, pub domain.Publisher) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetOrderMatters(true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.handler(pub))
		token.Wait()
		if err := token.Error(); err != nil {
			slog.Error("MQTT subscribe failed", "topic", s.cfg.Topic, "error", err)
			return
		}
		slog.Info("MQTT source subscribed", "broker", s.cfg.BrokerURL, "topic", s.cfg.Topic)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT connection lost", "broker", s.cfg.BrokerURL, "error", err)
	})

	client := s.newClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to mqtt broker %s: %w", s.cfg.BrokerURL, err)
		}
	case <-ctx.Done():
		client.Disconnect(0)
		return nil
	}

	<-ctx.Done()
	if token := client.Unsubscribe(s.cfg.Topic); token.WaitTimeout(time.Second) && token.Error() != nil {
		if !errors.Is(token.Error(), mqtt.ErrNotConnected) {
			slog.Debug("MQTT unsubscribe failed", "error", token.Error())
		}
	}
	client.Disconnect(mqttDisconnectQuiesceMs)
	slog.Info("MQTT source stopped")
	return nil
}

func (s *MQTTSource) handler(pub domain.Publisher) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		forward(sourceMQTT, msg.Payload(), pub, s.metrics)
	}
}
