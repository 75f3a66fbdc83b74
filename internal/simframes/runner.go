package simframes

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/classtwin/classtwin/pkg/logger"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds, paho convention
)

// Run connects to the broker and publishes synthetic frames at the
// configured rate until the duration elapses or the context is cancelled.
func Run(ctx context.Context, config *Config) error {
	log := logger.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetConnectTimeout(connectTimeout)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(connectTimeout) && token.Error() != nil {
		return fmt.Errorf("connect to broker %s: %w", config.Broker, token.Error())
	}
	defer client.Disconnect(disconnectQuiesce)

	log.Info(ctx, "publishing synthetic frames",
		logger.String("broker", config.Broker),
		logger.String("topic", config.Topic),
		logger.Int("bodies", config.Bodies),
		logger.Int("frame_rate", config.FrameRate),
	)

	if config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Duration)
		defer cancel()
	}

	interval := time.Second / time.Duration(config.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var published int
	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "stopping frame generation", logger.Int("published", published))
			return nil
		case now := <-ticker.C:
			payload, err := generateFrame(config, now)
			if err != nil {
				return fmt.Errorf("generate frame: %w", err)
			}
			token := client.Publish(config.Topic, 0, false, payload)
			if token.WaitTimeout(connectTimeout) && token.Error() != nil {
				return fmt.Errorf("publish frame: %w", token.Error())
			}
			published++
			if config.Verbose {
				log.Info(ctx, "published frame", logger.Int("seq", published))
			}
		}
	}
}
