// Package notify pushes player updates to devices over MQTT so a display can
// react to a new assignment before its next content poll.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/model"
)

const publishWait = 2 * time.Second

// Client is the part of mqtt.Client used here.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// ContentMessage is the retained payload on <prefix>/<device_id>/content.
type ContentMessage struct {
	PlayerID   string `json:"player_id"`
	ContentURL string `json:"content_url"`
	UpdatedAt  string `json:"updated_at"`
}

// PairedMessage is published once on <prefix>/<device_id>/paired.
type PairedMessage struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	PairedAt   string `json:"paired_at"`
}

// MQTTNotifier publishes to per-device topics below prefix.
type MQTTNotifier struct {
	client Client
	prefix string
	log    *zap.Logger
}

func NewMQTTNotifier(client Client, prefix string, log *zap.Logger) *MQTTNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTNotifier{client: client, prefix: strings.TrimRight(prefix, "/"), log: log}
}

// Connect dials broker and returns a connected client.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", broker, token.Error())
	}
	return client, nil
}

// ContentTopic is where the assignment of deviceID is retained.
func (n *MQTTNotifier) ContentTopic(deviceID string) string {
	return n.prefix + "/" + deviceID + "/content"
}

func (n *MQTTNotifier) PairedTopic(deviceID string) string {
	return n.prefix + "/" + deviceID + "/paired"
}

// topicLevelOK reports whether deviceID can stand as one topic level.
// Device ids are validated on declaration; rows written before that check
// may still hold separators or wildcards.
func topicLevelOK(deviceID string) bool {
	return deviceID != "" && !strings.ContainsAny(deviceID, "/+#\x00")
}

func (n *MQTTNotifier) PlayerPaired(_ context.Context, p model.Player) {
	if !topicLevelOK(p.DeviceID) {
		n.log.Warn("mqtt: device id is not a valid topic level", zap.String("device_id", p.DeviceID))
		return
	}
	n.publish(n.PairedTopic(p.DeviceID), false, PairedMessage{
		PlayerID:   p.PlayerID,
		PlayerName: p.Name,
		PairedAt:   p.PairedAt.UTC().Format(time.RFC3339),
	})
}

// ContentAssigned retains the new assignment so a device subscribing later
// still receives it.
func (n *MQTTNotifier) ContentAssigned(_ context.Context, p model.Player) {
	if !topicLevelOK(p.DeviceID) {
		n.log.Warn("mqtt: device id is not a valid topic level", zap.String("device_id", p.DeviceID))
		return
	}
	msg := ContentMessage{PlayerID: p.PlayerID, ContentURL: p.Content()}
	if p.ContentUpdatedAt != nil {
		msg.UpdatedAt = p.ContentUpdatedAt.UTC().Format(time.RFC3339)
	}
	n.publish(n.ContentTopic(p.DeviceID), true, msg)
}

func (n *MQTTNotifier) publish(topic string, retained bool, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.log.Warn("mqtt: encode payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	token := n.client.Publish(topic, 1, retained, data)
	if !token.WaitTimeout(publishWait) {
		n.log.Warn("mqtt: publish timed out", zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		n.log.Warn("mqtt: publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
