// Package model contains domain models passed between layers.
package model

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"time"
)

// Identity tags how an entity id was obtained. Stable identities come from
// the sensing device's tracker and persist across consecutive snapshots.
// Ephemeral identities are structural hashes used when the device did not
// assign an id; they are only meaningful within the tick that produced them,
// so attendance-duration guarantees do not apply to them.
type Identity struct {
	Value  uint64
	Stable bool
}

// StableID builds an identity from a device-assigned tracking id.
func StableID(id uint64) Identity {
	return Identity{Value: id, Stable: true}
}

// EphemeralID derives a lossy, content-based identity for an entity that
// arrived without a tracking id.
func EphemeralID(pos Point3D, keypoints []Keypoint) Identity {
	h := fnv.New64a()
	var buf [8]byte
	write := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = h.Write(buf[:])
	}
	write(pos.X)
	write(pos.Y)
	write(pos.Z)
	for _, kp := range keypoints {
		write(kp.X)
		write(kp.Y)
	}
	return Identity{Value: h.Sum64(), Stable: false}
}

// Point3D is a position in meters, in the device's world frame.
type Point3D struct {
	X float64
	Y float64
	Z float64
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point3D) DistanceTo(q Point3D) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Keypoint is a 2D skeleton keypoint in image coordinates. The sensing
// adapter normalizes both wire encodings (array and object) into this shape
// exactly once at ingestion; evaluators never see raw wire data.
type Keypoint struct {
	X          float64
	Y          float64
	Confidence float64
}

// Keypoint indices for the BODY-18 skeleton layout. Only the two the
// behavioral evaluator needs are named.
const (
	KeypointNose = 0
	KeypointNeck = 1
)

// Entity is one tracked subject in a snapshot.
type Entity struct {
	ID        Identity
	Position  Point3D
	Keypoints []Keypoint
}

// Snapshot is one tick's immutable set of detected entities, in the order
// the device reported them. It is owned exclusively by the tick that
// created it and must not be mutated after decode.
type Snapshot struct {
	Timestamp time.Time
	Entities  []Entity
}
