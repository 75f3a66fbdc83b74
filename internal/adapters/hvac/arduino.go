// Package hvac implements the advisory refresh collaborator: it reads the
// room's sensor bus and an external weather service, runs the action model,
// and renders a human-readable suggestion.
package hvac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/classtwin/classtwin/internal/domain/model"
)

// Default sensor-bus configuration constants.
const (
	defaultSensorTTL   = 60 * time.Second
	defaultHTTPTimeout = 10 * time.Second
)

// Sensor variable names as exposed by the cloud thing. Casing matches the
// device's property registry.
var sensorVariables = []string{"Temperature", "Humidity", "Sound_Level", "airquality", "lightlevel"}

// SensorBusConfig holds the Arduino Cloud connection settings.
type SensorBusConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ThingID      string
	TTL          time.Duration
	Timeout      time.Duration
}

// SensorBusClient fetches the latest property values for the room's sensor
// thing. Reads are cached with their own TTL so a model-inference call never
// blocks on sensor-bus latency more than once per window.
type SensorBusClient struct {
	http         *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	thingID      string
	ttl          time.Duration

	mu        sync.Mutex
	cached    *model.SensorReadings
	fetchedAt time.Time
}

// NewSensorBusClient builds a client with sane defaults applied.
func NewSensorBusClient(cfg SensorBusConfig) *SensorBusClient {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSensorTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &SensorBusClient{
		http:         &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		thingID:      cfg.ThingID,
		ttl:          cfg.TTL,
	}
}

// Readings returns the latest sensor snapshot, fetching at most once per
// TTL window.
func (c *SensorBusClient) Readings(ctx context.Context) (model.SensorReadings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetchedAt) < c.ttl {
		return *c.cached, nil
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return model.SensorReadings{}, fmt.Errorf("sensor bus token: %w", err)
	}

	values, err := c.properties(ctx, token)
	if err != nil {
		return model.SensorReadings{}, fmt.Errorf("sensor bus properties: %w", err)
	}

	readings := model.SensorReadings{
		Temperature: values["temperature"],
		Humidity:    values["humidity"],
		SoundLevel:  values["sound_level"],
		AirQuality:  values["airquality"],
		LightLevel:  values["lightlevel"],
	}
	c.cached = &readings
	c.fetchedAt = time.Now()
	return readings, nil
}

func (c *SensorBusClient) accessToken(ctx context.Context) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"audience":      "https://api2.arduino.cc/iot",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/iot/v1/clients/token", strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access_token")
	}
	return body.AccessToken, nil
}

func (c *SensorBusClient) properties(ctx context.Context, token string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/iot/v2/things/%s/properties", c.baseURL, c.thingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("properties endpoint returned %s", resp.Status)
	}

	var props []struct {
		Name      string  `json:"name"`
		LastValue float64 `json:"last_value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&props); err != nil {
		return nil, err
	}

	values := make(map[string]float64, len(sensorVariables))
	for _, p := range props {
		values[strings.ToLower(p.Name)] = p.LastValue
	}
	return values, nil
}
