package sensing

import (
	"context"
	"fmt"
	"time"

	"github.com/classtwin/classtwin/internal/adapters/mq/queue"
	"github.com/classtwin/classtwin/pkg/logger"
	"github.com/classtwin/classtwin/pkg/metrics"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Default MQTT configuration constants.
const (
	defaultKeepAlive      = 60 * time.Second
	defaultPingTimeout    = 10 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultQoS            = 0
)

// MQTTConfig holds the broker connection settings for the frame topic.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// MQTTSource subscribes to the device's frame topic and feeds decoded
// snapshots into the aggregation queue. Decode failures skip the frame;
// they never reach the aggregation loop.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	qos    byte
	sink   queue.Queue
	logger logger.Logger
}

// NewMQTTSource connects to the broker and returns a source ready to
// subscribe.
func NewMQTTSource(cfg MQTTConfig, sink queue.Queue) (*MQTTSource, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetPingTimeout(defaultPingTimeout)
	opts.SetConnectTimeout(defaultConnectTimeout)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}

	return &MQTTSource{
		client: client,
		topic:  cfg.Topic,
		qos:    cfg.QoS,
		sink:   sink,
		logger: logger.Get().Named("sensing"),
	}, nil
}

// Start subscribes to the frame topic. Frames are decoded on the broker
// callback goroutine and enqueued without blocking; when the queue is full
// the frame is dropped (the aggregation loop is behind).
func (s *MQTTSource) Start(ctx context.Context) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		s.handleFrame(ctx, msg.Payload())
	}
	if token := s.client.Subscribe(s.topic, s.qos, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, token.Error())
	}
	s.logger.Info(ctx, "subscribed to frame topic", logger.String("topic", s.topic))
	return nil
}

func (s *MQTTSource) handleFrame(ctx context.Context, payload []byte) {
	result, err := Decode(payload, time.Now())
	if err != nil {
		metrics.RecordFrameDecodeError()
		s.logger.Warn(ctx, "skipping undecodable frame", logger.Error(err))
		return
	}
	if result.SkippedBodies > 0 {
		metrics.RecordMalformedEntities(result.SkippedBodies)
		s.logger.Debug(ctx, "skipped malformed bodies in frame",
			logger.Int("skipped", result.SkippedBodies),
			logger.Int("kept", len(result.Snapshot.Entities)),
		)
	}
	s.sink.Enqueue(ctx, result.Snapshot)
}

// Close unsubscribes and disconnects from the broker.
func (s *MQTTSource) Close() error {
	if token := s.client.Unsubscribe(s.topic); token.Wait() && token.Error() != nil {
		s.logger.Warn(context.Background(), "unsubscribe failed", logger.Error(token.Error()))
	}
	s.client.Disconnect(250) //nolint:mnd // paho quiesce window in milliseconds
	return nil
}
