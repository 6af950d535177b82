package hardware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	User     string
	Password string
}

// MQTTController publishes commands to a topic the device subscribes to.
type MQTTController struct {
	client mqtt.Client
	topic  string
}

func NewMQTTController(cfg MQTTConfig) (*MQTTController, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.User != "" {
		opts.SetUsername(cfg.User)
		opts.SetPassword(cfg.Password)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqtt_connection_lost", "broker", cfg.Broker, "error", err)
	}

	client := mqtt.NewClient(opts)
	if tk := client.Connect(); tk.WaitTimeout(10*time.Second) && tk.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tk.Error())
	}

	return &MQTTController{client: client, topic: cfg.Topic}, nil
}

func (m *MQTTController) Control(ctx context.Context, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	tk := m.client.Publish(m.topic, 1, false, payload)
	select {
	case <-tk.Done():
		if err := tk.Error(); err != nil {
			return fmt.Errorf("mqtt publish: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MQTTController) Close() {
	if m.client.IsConnected() {
		m.client.Disconnect(500)
	}
}
