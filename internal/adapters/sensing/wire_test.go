package sensing

import (
	"testing"
	"time"

	"github.com/classtwin/classtwin/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ArrayKeypoints(t *testing.T) {
	payload := []byte(`{
		"ts": 1700000000000,
		"bodies": [
			{"id": 7, "position": [1.0, 2.0, 0.0], "keypoints_2d": [[320, 100, 0.9], [320, 180]]}
		]
	}`)

	result, err := Decode(payload, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, result.SkippedBodies)

	snap := result.Snapshot
	assert.Equal(t, time.UnixMilli(1700000000000), snap.Timestamp)
	require.Len(t, snap.Entities, 1)

	e := snap.Entities[0]
	assert.Equal(t, model.StableID(7), e.ID)
	assert.Equal(t, model.Point3D{X: 1.0, Y: 2.0, Z: 0.0}, e.Position)
	require.Len(t, e.Keypoints, 2)
	assert.Equal(t, model.Keypoint{X: 320, Y: 100, Confidence: 0.9}, e.Keypoints[0])
	assert.Equal(t, model.Keypoint{X: 320, Y: 180}, e.Keypoints[1])
}

func TestDecode_ObjectKeypoints(t *testing.T) {
	payload := []byte(`{
		"ts": 1700000000000,
		"bodies": [
			{"id": 3, "position": [0.5, 0.5, 0.0], "keypoints_2d": [{"x": 100, "y": 50, "c": 0.8}, {"x": 100, "y": 120}]}
		]
	}`)

	result, err := Decode(payload, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Snapshot.Entities, 1)

	e := result.Snapshot.Entities[0]
	assert.Equal(t, model.Keypoint{X: 100, Y: 50, Confidence: 0.8}, e.Keypoints[0])
	assert.Equal(t, model.Keypoint{X: 100, Y: 120}, e.Keypoints[1])
}

func TestDecode_MixedKeypointEncodings(t *testing.T) {
	// Firmware versions differ per device; a single frame may mix both.
	payload := []byte(`{
		"bodies": [
			{"id": 1, "position": [0, 0, 0], "keypoints_2d": [[10, 20], {"x": 30, "y": 40}]}
		]
	}`)

	result, err := Decode(payload, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Snapshot.Entities, 1)

	kps := result.Snapshot.Entities[0].Keypoints
	assert.Equal(t, model.Keypoint{X: 10, Y: 20}, kps[0])
	assert.Equal(t, model.Keypoint{X: 30, Y: 40}, kps[1])
}

func TestDecode_MissingIDGetsEphemeralIdentity(t *testing.T) {
	payload := []byte(`{
		"bodies": [
			{"position": [1.5, 2.5, 0.0], "keypoints_2d": [[320, 100], [320, 180]]}
		]
	}`)

	result, err := Decode(payload, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Snapshot.Entities, 1)

	e := result.Snapshot.Entities[0]
	assert.False(t, e.ID.Stable)

	// The same content decodes to the same ephemeral identity.
	again, err := Decode(payload, time.Now())
	require.NoError(t, err)
	assert.Equal(t, e.ID, again.Snapshot.Entities[0].ID)
}

func TestDecode_MalformedBodySkipped(t *testing.T) {
	// Body 2 has a bad position; body 3 has an unparseable keypoint.
	payload := []byte(`{
		"bodies": [
			{"id": 1, "position": [0, 0, 0], "keypoints_2d": []},
			{"id": 2, "position": [1.0], "keypoints_2d": []},
			{"id": 3, "position": [2, 2, 0], "keypoints_2d": [[5]]},
			{"id": 4, "position": [3, 3, 0], "keypoints_2d": []}
		]
	}`)

	result, err := Decode(payload, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, result.SkippedBodies)
	require.Len(t, result.Snapshot.Entities, 2)
	assert.Equal(t, model.StableID(1), result.Snapshot.Entities[0].ID)
	assert.Equal(t, model.StableID(4), result.Snapshot.Entities[1].ID)
}

func TestDecode_FrameErrors(t *testing.T) {
	now := time.Now()

	_, err := Decode(nil, now)
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = Decode([]byte(`{not json`), now)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecode_MissingTimestampFallsBack(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"bodies": []}`)

	result, err := Decode(payload, now)
	require.NoError(t, err)
	assert.Equal(t, now, result.Snapshot.Timestamp)
	assert.Empty(t, result.Snapshot.Entities)
}
