package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/classtwin/classtwin/internal/simframes"
	"github.com/classtwin/classtwin/pkg/logger"
)

// Default generation parameters.
const (
	defaultBodies    = 5
	defaultFrameRate = 10
)

func main() {
	var (
		broker    = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
		topic     = flag.String("topic", "classtwin/frames", "Frame topic")
		clientID  = flag.String("client-id", "classtwin-simframes", "MQTT client ID")
		bodies    = flag.Int("bodies", defaultBodies, "Bodies per frame")
		frameRate = flag.Int("rate", defaultFrameRate, "Frames per second")
		duration  = flag.Duration("duration", 0, "Run duration (0 = until interrupted)")
		cluster   = flag.Bool("cluster", false, "Place two bodies within proximity range")
		phoneUse  = flag.Bool("phone-use", false, "Align nose/neck keypoints on the first body")
		verbose   = flag.Bool("verbose", false, "Log every published frame")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := &simframes.Config{
		Broker:    *broker,
		Topic:     *topic,
		ClientID:  *clientID,
		Bodies:    *bodies,
		FrameRate: *frameRate,
		Duration:  *duration,
		Cluster:   *cluster,
		PhoneUse:  *phoneUse,
		Verbose:   *verbose,
	}

	if config.FrameRate < 1 {
		config.FrameRate = 1
	}

	if err := simframes.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Frame generation failed: " + err.Error() + "\n")
	}
}
