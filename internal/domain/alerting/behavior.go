package alerting

import (
	"math"

	"github.com/classtwin/classtwin/internal/domain/model"
)

// EvaluateBehavior applies the keypoint-proximity heuristic to one snapshot.
//
// Only the first entity in the snapshot is inspected. If it carries at
// least two keypoints, an alert is emitted iff the vertical distance
// between the nose and neck keypoints is below yThreshold (image pixels).
// Entities with missing or short keypoint data yield no alert.
func EvaluateBehavior(snap model.Snapshot, yThreshold float64) []model.Alert {
	if len(snap.Entities) == 0 {
		return nil
	}

	kps := snap.Entities[0].Keypoints
	if len(kps) <= model.KeypointNeck {
		return nil
	}

	noseY := kps[model.KeypointNose].Y
	neckY := kps[model.KeypointNeck].Y
	if math.Abs(noseY-neckY) < yThreshold {
		return []model.Alert{{
			Kind:    model.AlertBehavioral,
			Message: "Phone usage alert!",
		}}
	}

	return nil
}
