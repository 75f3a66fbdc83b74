package hvac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Default weather client configuration constants.
const (
	defaultWeatherTTL = 60 * time.Second
)

// WeatherConfig holds the external weather service settings.
type WeatherConfig struct {
	BaseURL string
	APIKey  string
	City    string
	TTL     time.Duration
	Timeout time.Duration
}

// WeatherObservation is the external temperature and local time for the
// configured city.
type WeatherObservation struct {
	TempC     float64
	LocalTime string
}

// WeatherClient fetches the current outdoor conditions, cached with its own
// TTL independently of the sensor bus.
type WeatherClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	city    string
	ttl     time.Duration

	mu        sync.Mutex
	cached    *WeatherObservation
	fetchedAt time.Time
}

// NewWeatherClient builds a client with sane defaults applied.
func NewWeatherClient(cfg WeatherConfig) *WeatherClient {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultWeatherTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &WeatherClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		city:    cfg.City,
		ttl:     cfg.TTL,
	}
}

// Current returns the latest observation, fetching at most once per TTL
// window.
func (c *WeatherClient) Current(ctx context.Context) (WeatherObservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetchedAt) < c.ttl {
		return *c.cached, nil
	}

	endpoint := fmt.Sprintf("%s/v1/current.json?key=%s&q=%s",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(c.city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return WeatherObservation{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return WeatherObservation{}, fmt.Errorf("weather fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return WeatherObservation{}, fmt.Errorf("weather endpoint returned %s", resp.Status)
	}

	var body struct {
		Current struct {
			TempC float64 `json:"temp_c"`
		} `json:"current"`
		Location struct {
			LocalTime string `json:"localtime"`
		} `json:"location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return WeatherObservation{}, err
	}

	obs := WeatherObservation{TempC: body.Current.TempC, LocalTime: body.Location.LocalTime}
	c.cached = &obs
	c.fetchedAt = time.Now()
	return obs, nil
}
