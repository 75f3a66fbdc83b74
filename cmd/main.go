package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/classtwin/classtwin/internal/adapters/bus"
	"github.com/classtwin/classtwin/internal/adapters/hvac"
	"github.com/classtwin/classtwin/internal/adapters/mq/queue"
	"github.com/classtwin/classtwin/internal/adapters/sensing"
	app "github.com/classtwin/classtwin/internal/app"
	"github.com/classtwin/classtwin/internal/config"
	"github.com/classtwin/classtwin/internal/domain/advisory"
	"github.com/classtwin/classtwin/pkg/logger"
	"github.com/classtwin/classtwin/pkg/metrics"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 10 * time.Second
	systemMetricsInterval = 10 * time.Second
	dashboardBuffer       = 8
)

func main() {
	// Optional .env for local development; real deployments use the
	// environment directly.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Advisory refresh collaborator: sensor bus + weather + action model.
	refresher := hvac.NewRefresher(
		hvac.NewSensorBusClient(hvac.SensorBusConfig{
			BaseURL:      cfg.SensorBaseURL,
			ClientID:     cfg.SensorClientID,
			ClientSecret: cfg.SensorClientSecret,
			ThingID:      cfg.SensorThingID,
			TTL:          time.Duration(cfg.SensorTTLSec) * time.Second,
			Timeout:      time.Duration(cfg.FetchTimeoutSec) * time.Second,
		}),
		hvac.NewWeatherClient(hvac.WeatherConfig{
			BaseURL: cfg.WeatherBaseURL,
			APIKey:  cfg.WeatherAPIKey,
			City:    cfg.WeatherCity,
			TTL:     time.Duration(cfg.WeatherTTLSec) * time.Second,
			Timeout: time.Duration(cfg.FetchTimeoutSec) * time.Second,
		}),
		nil,
	)

	cache := advisory.NewCache(refresher,
		advisory.WithTTL(time.Duration(cfg.AdvisoryTTLSec)*time.Second),
		advisory.WithLogger(log.Named("advisory")),
	)

	frames := queue.NewInMemoryQueue(queue.WithBufferSize(cfg.FrameQueueSize))
	stateBus := bus.New()

	svc := app.New(frames, cache, stateBus,
		app.WithLogger(log.Named("aggregator")),
		app.WithOccupancyLimit(cfg.OccupancyLimit),
		app.WithMinDistance(cfg.MinDistanceM),
		app.WithBehaviorThreshold(cfg.BehaviorYThreshold),
		app.WithProximityAlerts(cfg.ProximityAlerts),
		app.WithBehaviorAlerts(cfg.BehaviorAlerts),
		app.WithLabCapacity(cfg.LabCapacity),
		app.WithPublishInterval(time.Duration(cfg.PublishIntervalMS)*time.Millisecond),
		app.WithAdvisoryRefreshInterval(time.Duration(cfg.AdvisoryRefreshSec)*time.Second),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Sensing collaborator: detection frames over MQTT.
	source, err := sensing.NewMQTTSource(sensing.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		Topic:    cfg.MQTTTopic,
	}, frames)
	if err != nil {
		log.Error(ctx, "failed to connect sensing source", logger.Error(err))
		return
	}
	defer func() { _ = source.Close() }()

	if err := source.Start(ctx); err != nil {
		log.Error(ctx, "failed to subscribe sensing source", logger.Error(err))
		return
	}

	go startSystemMetricsUpdater(ctx)
	go runDashboardLogger(ctx, stateBus, log.Named("dashboard"))

	// Observability HTTP endpoints.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting observability server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("observability server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "observability server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "stopped")
}

// runDashboardLogger subscribes to the state bus and logs each published
// state; it stands in for an attached dashboard process.
func runDashboardLogger(ctx context.Context, stateBus *bus.StateBus, log logger.Logger) {
	ch := make(chan bus.State, dashboardBuffer)
	id := "dashboard-" + uuid.NewString()
	if err := stateBus.Subscribe(id, ch); err != nil {
		log.Warn(ctx, "dashboard subscribe failed", logger.Error(err))
		return
	}
	defer func() { _ = stateBus.Unsubscribe(id) }()

	for {
		select {
		case <-ctx.Done():
			return
		case state := <-ch:
			log.Debug(ctx, "state published",
				logger.Int("entities", state.NumEntities),
				logger.Int("alerts", len(state.Alerts)),
				logger.Bool("paused", state.Paused),
			)
		}
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates
// system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / 1e6
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
