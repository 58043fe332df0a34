// Package tracking receives pose samples for the tracked human
// operator: per-joint orientations plus shoulder and wrist positions
// for each arm, refreshed once per incoming frame.
package tracking

import (
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/openarm-robotics/armteleop/pkg/robot"
)

// ArmPose is the tracked state of one human arm. Any field may be
// absent for a given frame; consumers treat missing joints as a no-op.
type ArmPose struct {
	// Orientations holds the tracked rotation per mapped joint, in that
	// joint's local reference frame.
	Orientations map[robot.JointName]quat.Number
	Shoulder     r3.Vector
	Wrist        r3.Vector
	HasShoulder  bool
	HasWrist     bool
}

// PoseSample is one frame of operator tracking data.
type PoseSample struct {
	Arms      map[robot.Side]ArmPose
	Timestamp time.Time
}

// Arm returns the pose of one arm, if the sample carries it.
func (s PoseSample) Arm(side robot.Side) (ArmPose, bool) {
	pose, ok := s.Arms[side]
	return pose, ok
}

// Source yields the most recent pose sample. The control loop polls it
// once per tick; ok is false until a first sample arrives.
type Source interface {
	Latest() (PoseSample, bool)
}

// StaticSource is a Source holding a manually set sample. Used by tests
// and dry runs.
type StaticSource struct {
	mu     sync.RWMutex
	sample PoseSample
	has    bool
}

// Set replaces the current sample.
func (s *StaticSource) Set(sample PoseSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sample = sample
	s.has = true
}

// Clear drops the current sample.
func (s *StaticSource) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.has = false
}

// Latest returns the most recently set sample.
func (s *StaticSource) Latest() (PoseSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sample, s.has
}
