package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hydramind/config"
	"hydramind/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTService publishes retained snapshots so plant displays get the latest
// state as soon as they subscribe
type MQTTService struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

func NewMQTTService(cfg *config.Config, logger *zap.Logger) (*MQTTService, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.MQTTBroker))
	opts.SetClientID(cfg.MQTTClientID)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) {
		return nil, fmt.Errorf("timeout connecting to MQTT broker %s", cfg.MQTTBroker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return &MQTTService{
		client: client,
		topic:  cfg.MQTTTopic,
		logger: logger,
	}, nil
}

func (m *MQTTService) Name() string {
	return "mqtt"
}

func (m *MQTTService) Publish(ctx context.Context, snapshot *models.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	token := m.client.Publish(m.topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", m.topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish MQTT message: %w", err)
	}

	m.logger.Debug("Published snapshot to MQTT",
		zap.String("topic", m.topic),
		zap.Uint64("seq", snapshot.Seq))
	return nil
}

func (m *MQTTService) Close() {
	m.logger.Info("Disconnecting from MQTT broker")
	m.client.Disconnect(250)
}
