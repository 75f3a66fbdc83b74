// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers an optional YAML file and env vars on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the observability HTTP listen address (metrics,
	// health), e.g. ":9080".
	Addr string `koanf:"addr"`

	// OccupancyLimit is the occupancy alert threshold. It also caps the
	// registered count while proximity alerting is enabled.
	OccupancyLimit int `koanf:"occupancy_limit"`

	// MinDistanceM is the pairwise proximity threshold in meters.
	MinDistanceM float64 `koanf:"min_distance_m"`

	// BehaviorYThreshold is the nose/neck vertical distance threshold in
	// image pixels.
	BehaviorYThreshold float64 `koanf:"behavior_y_threshold"`

	// ProximityAlerts and BehaviorAlerts toggle the two evaluators.
	ProximityAlerts bool `koanf:"proximity_alerts"`
	BehaviorAlerts  bool `koanf:"behavior_alerts"`

	// LabCapacity caps the registered count when proximity alerting is
	// disabled.
	LabCapacity int `koanf:"lab_capacity"`

	// FrameQueueSize bounds the snapshot queue between the sensing
	// adapter and the aggregation worker.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// PublishIntervalMS sets the observer fan-out cadence.
	PublishIntervalMS int `koanf:"publish_interval_ms"`

	// AdvisoryTTLSec bounds how long a cached advisory is served without
	// a refresh.
	AdvisoryTTLSec int `koanf:"advisory_ttl_sec"`

	// AdvisoryRefreshSec gates the background advisory refresh; zero
	// leaves refresh purely on-demand.
	AdvisoryRefreshSec int `koanf:"advisory_refresh_sec"`

	// SensorTTLSec and WeatherTTLSec cap the advisory sub-fetch caches.
	SensorTTLSec  int `koanf:"sensor_ttl_sec"`
	WeatherTTLSec int `koanf:"weather_ttl_sec"`

	// FetchTimeoutSec bounds every external HTTP call made by the
	// advisory refresher.
	FetchTimeoutSec int `koanf:"fetch_timeout_sec"`

	// MQTT broker settings for the detection frame topic.
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTClientID string `koanf:"mqtt_client_id"`
	MQTTUsername string `koanf:"mqtt_username"`
	MQTTPassword string `koanf:"mqtt_password"`
	MQTTTopic    string `koanf:"mqtt_topic"`

	// Sensor-bus (Arduino Cloud) settings.
	SensorBaseURL      string `koanf:"sensor_base_url"`
	SensorClientID     string `koanf:"sensor_client_id"`
	SensorClientSecret string `koanf:"sensor_client_secret"`
	SensorThingID      string `koanf:"sensor_thing_id"`

	// Weather service settings.
	WeatherBaseURL string `koanf:"weather_base_url"`
	WeatherAPIKey  string `koanf:"weather_api_key"`
	WeatherCity    string `koanf:"weather_city"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9091",
		OccupancyLimit:     12,
		MinDistanceM:       1.0,
		BehaviorYThreshold: 40,
		ProximityAlerts:    true,
		BehaviorAlerts:     true,
		LabCapacity:        30,
		FrameQueueSize:     64,
		PublishIntervalMS:  1000,
		AdvisoryTTLSec:     60,
		AdvisoryRefreshSec: 300,
		SensorTTLSec:       60,
		WeatherTTLSec:      60,
		FetchTimeoutSec:    10,
		MQTTBroker:         "tcp://localhost:1883",
		MQTTClientID:       "classtwin-core",
		MQTTTopic:          "classtwin/frames",
		SensorBaseURL:      "https://api2.arduino.cc",
		WeatherBaseURL:     "http://api.weatherapi.com",
		WeatherCity:        "Beirut",
	}
}
