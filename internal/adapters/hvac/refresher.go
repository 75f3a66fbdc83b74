package hvac

import (
	"context"
	"fmt"
	"math"

	"github.com/classtwin/classtwin/internal/domain/model"
)

// Refresher implements advisory.Refresher. A refresh performs the two slow
// sub-fetches (sensor bus, weather), runs the action model, and renders the
// suggestion. The sub-fetches cache independently, so a refresh only pays
// for upstreams whose own TTL has lapsed.
type Refresher struct {
	sensors *SensorBusClient
	weather *WeatherClient
	model   ActionModel
}

// NewRefresher wires the refresh collaborator. A nil actionModel falls back
// to the built-in rule model.
func NewRefresher(sensors *SensorBusClient, weather *WeatherClient, actionModel ActionModel) *Refresher {
	if actionModel == nil {
		actionModel = RuleModel{}
	}
	return &Refresher{sensors: sensors, weather: weather, model: actionModel}
}

// Refresh computes a fresh advisory for the given occupancy. It is
// idempotent and safe to retry.
func (r *Refresher) Refresh(ctx context.Context, occupancy int) (model.Advisory, error) {
	readings, err := r.sensors.Readings(ctx)
	if err != nil {
		return model.Advisory{}, fmt.Errorf("refresh advisory: %w", err)
	}

	obs, err := r.weather.Current(ctx)
	if err != nil {
		return model.Advisory{}, fmt.Errorf("refresh advisory: %w", err)
	}

	action := r.model.Predict(Features{
		Sensors:      readings,
		ExternalTemp: obs.TempC,
		Occupancy:    occupancy,
	})

	return model.Advisory{
		Action:       action,
		Suggestion:   Suggestion(action, readings.Temperature, occupancy),
		Sensors:      readings,
		ExternalTemp: obs.TempC,
		LocalTime:    obs.LocalTime,
	}, nil
}

// Suggestion renders the human-readable adjustment advice for an action.
func Suggestion(action model.AdvisoryAction, currentTemp float64, occupancy int) string {
	diff := AdjustedDiff(currentTemp, occupancy)
	abs := math.Abs(diff)

	switch {
	case action == model.ActionCool && diff > 0:
		return fmt.Sprintf("COOL by %.1f C to reach %.0f C (incl. %d ppl).", abs, targetTempC, occupancy)
	case action == model.ActionHeat && diff < 0:
		return fmt.Sprintf("HEAT by %.1f C to reach %.0f C (incl. %d ppl).", abs, targetTempC, occupancy)
	case action == model.ActionMaintain:
		return "Maintain - temperature is optimal."
	case action == model.ActionFan:
		return "Run fan - circulate air."
	case action == model.ActionIdle:
		return "Idle - no one's here."
	default:
		return "Monitor - no immediate action."
	}
}
