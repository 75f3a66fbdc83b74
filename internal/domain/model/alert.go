package model

// AlertKind classifies an alert. A snapshot may yield zero or more alerts;
// alerts never persist across ticks.
type AlertKind string

// Alert kinds, in the fixed order they appear in AggregatedState.Alerts.
const (
	AlertOccupancy  AlertKind = "occupancy"
	AlertProximity  AlertKind = "proximity"
	AlertBehavioral AlertKind = "behavioral"
)

// Alert is a single human-readable alert produced by an evaluator.
type Alert struct {
	Kind    AlertKind
	Message string
}
