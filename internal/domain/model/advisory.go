package model

import "time"

// AdvisoryAction is the classifier's recommended environmental action.
type AdvisoryAction string

// Advisory actions produced by the action model. Unknown is the defined
// fallback when no advisory has ever been fetched successfully.
const (
	ActionCool     AdvisoryAction = "COOL"
	ActionHeat     AdvisoryAction = "HEAT"
	ActionMaintain AdvisoryAction = "MAINTAIN"
	ActionFan      AdvisoryAction = "FAN"
	ActionIdle     AdvisoryAction = "IDLE"
	ActionUnknown  AdvisoryAction = "UNKNOWN"
)

// SensorReadings is the sensor-bus snapshot an advisory was derived from.
type SensorReadings struct {
	Temperature float64
	Humidity    float64
	SoundLevel  float64
	AirQuality  float64
	LightLevel  float64
}

// Advisory is a cached, periodically refreshed environmental recommendation.
// It is replaced wholesale on refresh, never partially mutated, so readers
// may hold a copy without synchronization.
type Advisory struct {
	Action       AdvisoryAction
	Suggestion   string
	Sensors      SensorReadings
	ExternalTemp float64
	LocalTime    string
	FetchedAt    time.Time
}
