// Package simframes generates synthetic detection frames and publishes
// them to the broker, standing in for a camera pipeline during
// development and load testing.
package simframes

import (
	"time"
)

// Config holds the frame generation parameters.
type Config struct {
	Broker    string        // MQTT broker URL
	Topic     string        // frame topic
	ClientID  string        // MQTT client identifier
	Bodies    int           // bodies per frame
	FrameRate int           // frames per second
	Duration  time.Duration // total run time; zero runs until cancelled
	Cluster   bool          // place two bodies within proximity range
	PhoneUse  bool          // align nose/neck keypoints on the first body
	Verbose   bool
}
