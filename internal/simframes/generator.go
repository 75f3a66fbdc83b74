package simframes

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"time"
)

// Room and image dimensions for generated coordinates.
const (
	roomExtentM        = 8.0 // bodies scatter within an 8x8 m floor
	imageWidthPx       = 640.0
	imageHeightPx      = 480.0
	randomFloatDivisor = 1000000

	// Upright posture keeps the nose well above the neck; phone-use
	// posture collapses the gap under the behavioral threshold.
	uprightNoseNeckGapPx  = 80.0
	phoneUseNoseNeckGapPx = 10.0

	clusterSpacingM = 0.5 // inside the default 1 m proximity threshold
)

// wireBody mirrors the frame payload consumed by the sensing adapter.
type wireBody struct {
	ID          uint64       `json:"id"`
	Position    [3]float64   `json:"position"`
	Keypoints2D [][2]float64 `json:"keypoints_2d"`
}

type wireFrame struct {
	TS     int64      `json:"ts"`
	Bodies []wireBody `json:"bodies"`
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateFrame builds one frame payload at the given instant.
func generateFrame(config *Config, now time.Time) ([]byte, error) {
	bodies := make([]wireBody, config.Bodies)
	for i := range bodies {
		bodies[i] = generateBody(uint64(i + 1))
	}

	if config.Cluster && len(bodies) >= 2 {
		// Drop the second body next to the first.
		bodies[1].Position = bodies[0].Position
		bodies[1].Position[0] += clusterSpacingM
	}

	if config.PhoneUse && len(bodies) >= 1 {
		nose := &bodies[0].Keypoints2D[0]
		neck := &bodies[0].Keypoints2D[1]
		nose[1] = neck[1] - phoneUseNoseNeckGapPx
	}

	frame := wireFrame{
		TS:     now.UnixMilli(),
		Bodies: bodies,
	}
	return json.Marshal(frame)
}

// generateBody places a single body at a random floor position with an
// upright nose/neck pose.
func generateBody(id uint64) wireBody {
	x := getRandomFloat() * roomExtentM
	y := getRandomFloat() * roomExtentM

	noseX := getRandomFloat() * imageWidthPx
	neckY := imageHeightPx/2 + getRandomFloat()*(imageHeightPx/4)
	noseY := neckY - uprightNoseNeckGapPx

	return wireBody{
		ID:       id,
		Position: [3]float64{x, y, 0},
		Keypoints2D: [][2]float64{
			{noseX, noseY},
			{noseX, neckY},
		},
	}
}
