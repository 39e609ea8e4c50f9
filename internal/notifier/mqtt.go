package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Publisher MQTT 发布接口（MQTTClient 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTClient MQTT客户端封装
type MQTTClient struct {
	client mqtt.Client
	logger *zap.Logger
}

// NewMQTTClient 创建并连接MQTT客户端
func NewMQTTClient(cfg *config.MQTTConfig, logger *zap.Logger) (*MQTTClient, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTClient{client: client, logger: logger}, nil
}

// Publish 发布消息
func (c *MQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Disconnect 断开连接
func (c *MQTTClient) Disconnect() {
	c.client.Disconnect(250)
}

// MQTTChannel 发布告警到 {topic}/{tenant_id}/{subject_id}
type MQTTChannel struct {
	publisher Publisher
	topic     string
	qos       byte
}

// NewMQTTChannel 创建 MQTT 通道
func NewMQTTChannel(publisher Publisher, topic string, qos byte) *MQTTChannel {
	return &MQTTChannel{
		publisher: publisher,
		topic:     topic,
		qos:       qos,
	}
}

// Name 通道名称
func (m *MQTTChannel) Name() string {
	return "mqtt"
}

// Topic 告警主题
func (m *MQTTChannel) Topic(event *models.AlertEvent) string {
	return fmt.Sprintf("%s/%s/%s", m.topic, event.TenantID, event.SubjectID)
}

// Publish 发布告警 JSON
func (m *MQTTChannel) Publish(ctx context.Context, event *models.AlertEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}
	return m.publisher.Publish(m.Topic(event), m.qos, false, payload)
}
