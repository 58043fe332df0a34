package teleop

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/openarm-robotics/armteleop/pkg/robot"
	"github.com/openarm-robotics/armteleop/pkg/tracking"
)

// Calibrator zeroes an arm in one shot: it rebases every joint's
// neutral on the operator's current pose, snaps the joints to the
// configured target angles, and holds them locked so the filtering
// pipeline cannot slew through a visible settle. Locks expire by
// timestamp, checked each tick by the orchestrator.
type Calibrator struct {
	cfg robot.CalibrationConfig
	clk clock.Clock
}

// NewCalibrator creates a calibrator. A nil clock falls back to wall
// time.
func NewCalibrator(cfg robot.CalibrationConfig, clk clock.Clock) *Calibrator {
	if clk == nil {
		clk = clock.New()
	}
	return &Calibrator{cfg: cfg, clk: clk}
}

// Calibrate runs the one-shot zeroing on a rig. The pose, when
// available, supplies the neutral reading per joint; joints absent from
// it keep their previous neutral. The snap is pushed to the drive
// immediately so there is no one-tick fall-through before the next
// Apply.
func (c *Calibrator) Calibrate(ctx context.Context, rig *ArmRig, pose tracking.ArmPose, havePose bool) error {
	targets := c.cfg.TargetsDeg
	for i, ch := range rig.Channels {
		if havePose {
			if q, ok := pose.Orientations[robot.JointName(ch.Name())]; ok {
				ch.CaptureNeutral(q)
			}
		}

		// With the neutral rebased the raw reading is ~0, so the offset
		// alone carries the mapped value to the desired target.
		desired := 0.0
		if i < len(targets) {
			desired = targets[i]
		}
		ch.SetOffsetDeg(desired)
		ch.Lock(desired)
		ch.SetTargetDirect(desired)
	}

	rig.lockUntil = c.clk.Now().Add(c.HoldDuration())

	if err := rig.Batch.Flush(ctx, rig.Drive); err != nil {
		return errors.Wrapf(err, "calibrate %s arm", rig.Side)
	}
	return nil
}

// HoldDuration returns how long joints stay locked after the snap.
func (c *Calibrator) HoldDuration() time.Duration {
	return time.Duration(c.cfg.HoldSeconds * float64(time.Second))
}
