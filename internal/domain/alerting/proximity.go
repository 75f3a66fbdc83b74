// Package alerting provides the per-snapshot alert evaluators. Evaluators
// are pure functions of a snapshot and their thresholds: no state, no side
// effects, and an empty snapshot always yields an empty result.
package alerting

import (
	"fmt"

	"github.com/classtwin/classtwin/internal/domain/model"
)

// EvaluateProximity applies the occupancy-threshold and pairwise-distance
// rules to one snapshot.
//
// One occupancy alert is emitted iff the entity count exceeds
// occupancyLimit. One proximity alert is emitted for every unordered pair
// of entities closer than minDistance meters. Pair enumeration is O(n^2)
// and intentionally uncapped; entity counts are single or double digits.
func EvaluateProximity(snap model.Snapshot, occupancyLimit int, minDistance float64) []model.Alert {
	var alerts []model.Alert

	if len(snap.Entities) > occupancyLimit {
		alerts = append(alerts, model.Alert{
			Kind:    model.AlertOccupancy,
			Message: fmt.Sprintf("More than %d bodies detected!", occupancyLimit),
		})
	}

	for i := 0; i < len(snap.Entities); i++ {
		for j := i + 1; j < len(snap.Entities); j++ {
			if snap.Entities[i].Position.DistanceTo(snap.Entities[j].Position) < minDistance {
				alerts = append(alerts, model.Alert{
					Kind:    model.AlertProximity,
					Message: fmt.Sprintf("Two bodies < %gm apart!", minDistance),
				})
			}
		}
	}

	return alerts
}
