// Package sensing ingests detection frames from the tracking device and
// turns them into domain snapshots.
//
// All wire-format tolerance lives here: keypoints arrive either as
// [x, y(, confidence)] arrays or as {"x": .., "y": ..} objects depending on
// the device firmware, and bodies may lack a tracking id. Both are
// normalized exactly once at ingestion so evaluators never see raw wire
// data.
package sensing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/classtwin/classtwin/internal/domain/model"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrEmptyFrame     = errors.New("empty frame payload")
	ErrMalformedFrame = errors.New("malformed frame payload")
)

// wireKeypoint accepts both keypoint encodings.
type wireKeypoint struct {
	X          float64
	Y          float64
	Confidence float64
}

func (k *wireKeypoint) UnmarshalJSON(data []byte) error {
	// Array form: [x, y] or [x, y, confidence].
	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) < 2 {
			return fmt.Errorf("keypoint array needs at least 2 elements, got %d", len(arr))
		}
		k.X = arr[0]
		k.Y = arr[1]
		if len(arr) > 2 {
			k.Confidence = arr[2]
		}
		return nil
	}

	// Object form: {"x": .., "y": .., "c": ..}.
	var obj struct {
		X          *float64 `json:"x"`
		Y          *float64 `json:"y"`
		Confidence float64  `json:"c"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("keypoint is neither array nor object: %w", err)
	}
	if obj.X == nil || obj.Y == nil {
		return errors.New("keypoint object missing x or y")
	}
	k.X = *obj.X
	k.Y = *obj.Y
	k.Confidence = obj.Confidence
	return nil
}

type wireBody struct {
	ID        *uint64           `json:"id"`
	Position  []float64         `json:"position"`
	Keypoints []json.RawMessage `json:"keypoints_2d"`
}

type wireFrame struct {
	TimestampMS int64      `json:"ts"`
	Bodies      []wireBody `json:"bodies"`
}

// DecodeResult carries the decoded snapshot plus how many bodies had to be
// skipped as structurally invalid.
type DecodeResult struct {
	Snapshot      model.Snapshot
	SkippedBodies int
}

// Decode parses one wire frame into a snapshot.
//
// A frame that cannot be parsed at all fails (the tick is skipped by the
// caller). A single malformed body is skipped and counted; the rest of the
// frame survives. A body without an id gets an ephemeral content-derived
// identity valid for this tick only.
func Decode(payload []byte, fallbackNow time.Time) (DecodeResult, error) {
	if len(payload) == 0 {
		return DecodeResult{}, ErrEmptyFrame
	}

	var frame wireFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return DecodeResult{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	ts := fallbackNow
	if frame.TimestampMS > 0 {
		ts = time.UnixMilli(frame.TimestampMS)
	}

	result := DecodeResult{
		Snapshot: model.Snapshot{
			Timestamp: ts,
			Entities:  make([]model.Entity, 0, len(frame.Bodies)),
		},
	}

	for _, body := range frame.Bodies {
		entity, ok := decodeBody(body)
		if !ok {
			result.SkippedBodies++
			continue
		}
		result.Snapshot.Entities = append(result.Snapshot.Entities, entity)
	}

	return result, nil
}

func decodeBody(body wireBody) (model.Entity, bool) {
	if len(body.Position) != 3 {
		return model.Entity{}, false
	}
	pos := model.Point3D{X: body.Position[0], Y: body.Position[1], Z: body.Position[2]}

	keypoints := make([]model.Keypoint, 0, len(body.Keypoints))
	for _, raw := range body.Keypoints {
		var kp wireKeypoint
		if err := json.Unmarshal(raw, &kp); err != nil {
			// Skip the whole body: a half-decoded skeleton would shift
			// keypoint indices and corrupt the behavioral heuristic.
			return model.Entity{}, false
		}
		keypoints = append(keypoints, model.Keypoint{X: kp.X, Y: kp.Y, Confidence: kp.Confidence})
	}

	id := model.EphemeralID(pos, keypoints)
	if body.ID != nil {
		id = model.StableID(*body.ID)
	}

	return model.Entity{ID: id, Position: pos, Keypoints: keypoints}, true
}
