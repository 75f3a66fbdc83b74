package hvac

import "github.com/classtwin/classtwin/internal/domain/model"

// Comfort model constants. The target temperature and per-person heat load
// mirror the values the classifier was trained against.
const (
	targetTempC       = 25.0
	heatPerPersonC    = 0.3
	coolBandC         = 1.0
	humidityFanThresh = 70.0
	airQualityThresh  = 150.0
)

// Features is the input vector for the action model: the same shape the
// trained classifier consumes.
type Features struct {
	Sensors      model.SensorReadings
	ExternalTemp float64
	Occupancy    int
}

// ActionModel predicts the recommended HVAC action for a feature vector.
// Production deployments plug the trained classifier in here; RuleModel is
// the built-in stand-in.
type ActionModel interface {
	Predict(f Features) model.AdvisoryAction
}

// AdjustedDiff is the temperature correction needed to reach the target,
// including the occupancy heat contribution, rounded to one decimal.
func AdjustedDiff(currentTemp float64, occupancy int) float64 {
	raw := currentTemp - targetTempC
	adjusted := raw + float64(occupancy)*heatPerPersonC
	return round1(adjusted)
}

func round1(v float64) float64 {
	if v < 0 {
		return float64(int(v*10-0.5)) / 10
	}
	return float64(int(v*10+0.5)) / 10
}

// RuleModel is a threshold model approximating the trained classifier's
// decision surface.
type RuleModel struct{}

// Predict implements ActionModel.
func (RuleModel) Predict(f Features) model.AdvisoryAction {
	if f.Occupancy == 0 {
		return model.ActionIdle
	}

	diff := AdjustedDiff(f.Sensors.Temperature, f.Occupancy)
	switch {
	case diff > coolBandC:
		return model.ActionCool
	case diff < -coolBandC:
		return model.ActionHeat
	case f.Sensors.Humidity > humidityFanThresh || f.Sensors.AirQuality > airQualityThresh:
		return model.ActionFan
	default:
		return model.ActionMaintain
	}
}
