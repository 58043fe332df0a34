package robot

import (
	"github.com/golang/geo/r3"

	"github.com/openarm-robotics/armteleop/pkg/retarget"
)

// jointDefault pairs a joint's axis with its travel limits.
type jointDefault struct {
	axis   r3.Vector
	minDeg float64
	maxDeg float64
}

var jointDefaults = map[JointName]jointDefault{
	ShoulderPitch: {r3.Vector{Y: 1}, -90, 135},
	ShoulderRoll:  {r3.Vector{X: 1}, -90, 90},
	ShoulderYaw:   {r3.Vector{Z: 1}, -90, 90},
	Elbow:         {r3.Vector{Y: 1}, 0, 145},
	WristRoll:     {r3.Vector{X: 1}, -100, 100},
	WristPitch:    {r3.Vector{Y: 1}, -60, 60},
	WristYaw:      {r3.Vector{Z: 1}, -60, 60},
}

// restOffsetsX holds the zero-pose distance from each joint to the
// next along the extended arm, end effector last.
var restOffsetsX = []float64{0.02, 0.02, 0.26, 0.03, 0.22, 0.03, 0.07}

// DefaultArmConfig returns a stock configuration for one OpenArm: the
// joint table with conservative filtering parameters and the zero-pose
// layout snapshot. The right arm mirrors the roll and yaw joints so a
// single tracked operator drives both sides symmetrically.
func DefaultArmConfig(side Side) ArmConfig {
	joints := make([]retarget.Config, 0, len(AllJoints()))
	rest := make([]r3.Vector, 0, len(AllJoints()))
	x := 0.0
	for i, name := range AllJoints() {
		jd := jointDefaults[name]
		joints = append(joints, retarget.Config{
			Name:               string(name),
			Axis:               jd.axis,
			MinDeg:             jd.minDeg,
			MaxDeg:             jd.maxDeg,
			Scale:              1,
			DeadZoneDeg:        1.5,
			HysteresisDeg:      1,
			SmoothAlpha:        0.35,
			RateLimitDegPerSec: 180,
			SoftLimitMarginDeg: 8,
			Stiffness:          1000,
			Damping:            50,
			ForceLimit:         100,
		})
		rest = append(rest, r3.Vector{X: x})
		x += restOffsetsX[i]
	}

	cfg := ArmConfig{
		Joints:        joints,
		RestPositions: rest,
		EndEffector:   r3.Vector{X: x},
	}
	if side == Right {
		cfg.MirrorJoints = []JointName{ShoulderRoll, ShoulderYaw, WristRoll, WristYaw}
	}
	return cfg
}

// DefaultConfig returns a full stock configuration for a dual-arm
// setup. Ports and servo calibration are filled in by setup.
func DefaultConfig() *Config {
	return &Config{
		Left:    DefaultArmConfig(Left),
		Right:   DefaultArmConfig(Right),
		Control: ControlConfig{Hz: 60},
		IK: IKConfig{
			Scale:             1,
			TargetSmoothAlpha: 0.4,
		},
		Tracking: TrackingConfig{Listen: ":8765"},
		Calibration: CalibrationConfig{
			TargetsDeg:  make([]float64, len(AllJoints())),
			HoldSeconds: 1.5,
		},
	}
}
