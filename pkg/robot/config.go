package robot

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"

	"github.com/openarm-robotics/armteleop/pkg/kinematics"
	"github.com/openarm-robotics/armteleop/pkg/retarget"
)

const DefaultConfigFile = "armteleop.json"

// Config holds the teleoperation configuration for both arms.
type Config struct {
	Left    ArmConfig     `json:"left"`
	Right   ArmConfig     `json:"right"`
	Control ControlConfig `json:"control"`
	IK      IKConfig      `json:"ik"`
	// Tracking is the listen address for the pose-sample websocket feed.
	Tracking TrackingConfig `json:"tracking"`
	// Calibration configures the zeroing snap applied on a calibration
	// trigger.
	Calibration CalibrationConfig `json:"calibration"`
}

// ArmConfig holds configuration for a single arm.
type ArmConfig struct {
	Port        string      `json:"port"`
	Calibration Calibration `json:"calibration,omitempty"`
	// Joints carries the per-joint retargeting parameters, base first.
	Joints []retarget.Config `json:"joints"`
	// RestPositions and EndEffector snapshot the arm layout at the zero
	// pose, for the kinematic chain cache.
	RestPositions []r3.Vector `json:"rest_positions"`
	EndEffector   r3.Vector   `json:"end_effector"`
	// MirrorJoints lists joints whose raw input sign is flipped, so one
	// tracked pose can drive mirrored left/right arms.
	MirrorJoints []JointName `json:"mirror_joints,omitempty"`
}

// ControlConfig tunes the control loop.
type ControlConfig struct {
	Hz int `json:"hz"`
}

// IKConfig holds the parameters of the human-to-robot position mapping
// and the solver.
type IKConfig struct {
	// Scale maps human arm reach onto robot reach; supplied by
	// calibration or configuration, never computed here.
	Scale float64 `json:"scale"`
	// EndEffectorOffset is a fixed offset added to the target, in the
	// robot base frame.
	EndEffectorOffset r3.Vector `json:"end_effector_offset"`
	// ClampMin/ClampMax bound the target inside a box in the robot base
	// frame when UseClamp is set.
	UseClamp bool      `json:"use_clamp"`
	ClampMin r3.Vector `json:"clamp_min"`
	ClampMax r3.Vector `json:"clamp_max"`
	// TargetSmoothAlpha low-passes the target between ticks.
	TargetSmoothAlpha float64 `json:"target_smooth_alpha"`

	Solver kinematics.SolverConfig `json:"solver"`
}

// TrackingConfig configures the pose-sample source.
type TrackingConfig struct {
	Listen string `json:"listen"`
}

// CalibrationConfig configures the one-shot joint zeroing action.
type CalibrationConfig struct {
	// TargetsDeg is the angle vector every joint snaps to, base first.
	TargetsDeg []float64 `json:"targets_deg"`
	// HoldSeconds is how long joints stay locked after the snap.
	HoldSeconds float64 `json:"hold_seconds"`
}

// IsCalibrated returns true if the arm has servo calibration data.
func (a *ArmConfig) IsCalibrated() bool {
	return len(a.Calibration) > 0
}

// LoadConfig loads configuration from the default config file.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists.
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
