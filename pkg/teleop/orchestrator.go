// Package teleop runs the teleoperation control loop: it maps tracked
// operator poses onto robot joint targets, per arm and per tick, under
// one of three control modes.
package teleop

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/openarm-robotics/armteleop/pkg/kinematics"
	"github.com/openarm-robotics/armteleop/pkg/retarget"
	"github.com/openarm-robotics/armteleop/pkg/robot"
	"github.com/openarm-robotics/armteleop/pkg/tracking"
)

// Mode selects the per-tick control strategy.
type Mode int

const (
	// ModeSingleJoint maps every joint independently through its
	// filtering pipeline.
	ModeSingleJoint Mode = iota
	// ModeIK positions the end effector by inverse kinematics and
	// bypasses the per-joint filters.
	ModeIK
	// ModeHybrid drives the shoulder and elbow group from IK and the
	// wrist group from direct joint mapping.
	ModeHybrid
)

func (m Mode) String() string {
	switch m {
	case ModeSingleJoint:
		return "single-joint"
	case ModeIK:
		return "ik"
	case ModeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Next returns the next mode in the cycle.
func (m Mode) Next() Mode {
	switch m {
	case ModeSingleJoint:
		return ModeIK
	case ModeIK:
		return ModeHybrid
	default:
		return ModeSingleJoint
	}
}

// hybridIKJoints is how many joints, base first, the IK solution owns
// in hybrid mode. The remaining wrist joints follow direct mapping.
const hybridIKJoints = 4

// ArmRig bundles everything needed to drive one arm: its channels in
// chain order, the kinematic chain and solver, and the drive.
type ArmRig struct {
	Side     robot.Side
	Channels []*retarget.Channel
	Chain    *kinematics.Chain
	Solver   *kinematics.CCDSolver
	Drive    robot.Drive
	Batch    *robot.Batch

	mirror map[robot.JointName]bool

	lastIKTarget r3.Vector
	hasIKTarget  bool
	lockUntil    time.Time
}

// NewArmRig assembles a rig from an arm configuration. The chain's
// joints take their axes and limits from the retarget configs, so the
// two views of the arm cannot drift apart.
func NewArmRig(side robot.Side, cfg robot.ArmConfig, drive robot.Drive, solverCfg kinematics.SolverConfig, logger golog.Logger) (*ArmRig, error) {
	if len(cfg.Joints) == 0 {
		return nil, errors.Errorf("%s arm has no joints configured", side)
	}

	batch := robot.NewBatch()
	channels := make([]*retarget.Channel, 0, len(cfg.Joints))
	chainJoints := make([]kinematics.Joint, 0, len(cfg.Joints))
	for _, jc := range cfg.Joints {
		channels = append(channels, retarget.NewChannel(jc, batch))
		chainJoints = append(chainJoints, kinematics.Joint{
			Name:  jc.Name,
			Axis:  jc.Axis,
			Limit: kinematics.Limit{MinDeg: jc.MinDeg, MaxDeg: jc.MaxDeg},
		})
	}

	chain, err := kinematics.NewChain(kinematics.ChainConfig{
		Joints:        chainJoints,
		RestPositions: cfg.RestPositions,
		EndEffector:   cfg.EndEffector,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s arm chain", side)
	}

	mirror := make(map[robot.JointName]bool, len(cfg.MirrorJoints))
	for _, name := range cfg.MirrorJoints {
		mirror[name] = true
	}

	return &ArmRig{
		Side:     side,
		Channels: channels,
		Chain:    chain,
		Solver:   kinematics.NewCCDSolver(chain, solverCfg, logger),
		Drive:    drive,
		Batch:    batch,
		mirror:   mirror,
	}, nil
}

// CurrentAngles returns the last commanded angle per joint in chain
// order, used to warm-start the IK solve.
func (r *ArmRig) CurrentAngles() []float64 {
	angles := make([]float64, len(r.Channels))
	for i, ch := range r.Channels {
		angles[i] = ch.LastCommanded()
	}
	return angles
}

// Locked reports whether a calibration hold is active at time now.
func (r *ArmRig) Locked(now time.Time) bool {
	return now.Before(r.lockUntil)
}

// ArmStatus is one arm's outcome for a tick.
type ArmStatus struct {
	Angles      map[robot.JointName]float64
	IKResidual  float64
	IKConverged bool
	IKSkipped   bool
	Locked      bool
	WriteErr    error
}

// Orchestrator dispatches the per-tick control strategy across both
// arms. All methods must be called from the control goroutine.
type Orchestrator struct {
	ik     robot.IKConfig
	rigs   map[robot.Side]*ArmRig
	mode   Mode
	logger golog.Logger
}

// NewOrchestrator creates an orchestrator over the given rigs, starting
// in single-joint mode.
func NewOrchestrator(ik robot.IKConfig, rigs map[robot.Side]*ArmRig, logger golog.Logger) *Orchestrator {
	if ik.Scale == 0 {
		ik.Scale = 1
	}
	if ik.TargetSmoothAlpha == 0 {
		ik.TargetSmoothAlpha = 1
	}
	return &Orchestrator{ik: ik, rigs: rigs, logger: logger}
}

// Mode returns the active control mode.
func (o *Orchestrator) Mode() Mode {
	return o.mode
}

// CycleMode advances to the next control mode. Channel state persists
// across the switch, so strategies can be hot-swapped mid-session.
func (o *Orchestrator) CycleMode() Mode {
	o.mode = o.mode.Next()
	return o.mode
}

// Rig returns the rig for one side.
func (o *Orchestrator) Rig(side robot.Side) (*ArmRig, bool) {
	rig, ok := o.rigs[side]
	return rig, ok
}

// Step runs one control tick for every arm and flushes the resulting
// drive targets. now drives lock expiry; dt is the fixed tick duration
// in seconds.
func (o *Orchestrator) Step(ctx context.Context, sample tracking.PoseSample, haveSample bool, now time.Time, dt float64) map[robot.Side]ArmStatus {
	statuses := make(map[robot.Side]ArmStatus, len(o.rigs))
	for side, rig := range o.rigs {
		if !rig.lockUntil.IsZero() && !now.Before(rig.lockUntil) {
			for _, ch := range rig.Channels {
				ch.Unlock()
			}
			rig.lockUntil = time.Time{}
		}

		var pose tracking.ArmPose
		havePose := false
		if haveSample {
			pose, havePose = sample.Arm(side)
		}

		status := o.stepArm(rig, pose, havePose, dt)
		status.Locked = rig.Locked(now)
		if err := rig.Batch.Flush(ctx, rig.Drive); err != nil {
			status.WriteErr = err
		}
		status.Angles = rig.anglesByName()
		statuses[side] = status
	}
	return statuses
}

func (o *Orchestrator) stepArm(rig *ArmRig, pose tracking.ArmPose, havePose bool, dt float64) ArmStatus {
	switch o.mode {
	case ModeIK:
		return o.stepIK(rig, pose, havePose, dt, 0)
	case ModeHybrid:
		return o.stepIK(rig, pose, havePose, dt, hybridIKJoints)
	default:
		o.stepSingleJoint(rig, pose, havePose, dt, 0)
		return ArmStatus{IKSkipped: true}
	}
}

// stepSingleJoint runs the filtering pipeline on channels from index
// `from` on. A joint with no orientation in the sample is left alone.
func (o *Orchestrator) stepSingleJoint(rig *ArmRig, pose tracking.ArmPose, havePose bool, dt float64, from int) {
	for i := from; i < len(rig.Channels); i++ {
		ch := rig.Channels[i]
		if ch.IsLocked() {
			ch.Apply(0, dt)
			continue
		}
		if !havePose {
			continue
		}
		q, ok := pose.Orientations[robot.JointName(ch.Name())]
		if !ok {
			continue
		}
		raw := ch.RawAngleDeg(q)
		if rig.mirror[robot.JointName(ch.Name())] {
			raw = -raw
		}
		ch.Apply(raw, dt)
	}
}

// stepIK computes the arm's IK target, solves, and pushes the solution
// directly to the first ikJoints channels (all of them when ikJoints is
// zero). The remaining channels run the single-joint pipeline. When the
// solve fails outright, no new angles are applied and the previous
// drive targets stay in force.
func (o *Orchestrator) stepIK(rig *ArmRig, pose tracking.ArmPose, havePose bool, dt float64, ikJoints int) ArmStatus {
	if ikJoints <= 0 || ikJoints > len(rig.Channels) {
		ikJoints = len(rig.Channels)
	}
	if ikJoints < len(rig.Channels) {
		o.stepSingleJoint(rig, pose, havePose, dt, ikJoints)
	}

	if !havePose || !pose.HasShoulder || !pose.HasWrist {
		return ArmStatus{IKSkipped: true}
	}

	target := o.ikTarget(rig, pose)
	sol := rig.Solver.Solve(target, rig.CurrentAngles())
	if !sol.Converged {
		return ArmStatus{IKResidual: sol.Residual, IKSkipped: true}
	}

	for i := 0; i < ikJoints; i++ {
		ch := rig.Channels[i]
		if ch.IsLocked() {
			ch.Apply(0, dt)
			continue
		}
		ch.SetTargetDirect(sol.Angles[i])
	}
	return ArmStatus{IKResidual: sol.Residual, IKConverged: true}
}

// ikTarget maps the human wrist-relative-to-shoulder vector into a
// smoothed target for the robot end effector, in the world frame.
func (o *Orchestrator) ikTarget(rig *ArmRig, pose tracking.ArmPose) r3.Vector {
	baseOrient := rig.Chain.BaseOrientation()

	rel := pose.Wrist.Sub(pose.Shoulder).Mul(o.ik.Scale)
	local := kinematics.RotateInverse(baseOrient, rel)
	if o.ik.UseClamp {
		local = clampBox(local, o.ik.ClampMin, o.ik.ClampMax)
	}
	local = local.Add(o.ik.EndEffectorOffset)
	world := rig.Chain.BasePosition().Add(kinematics.Rotate(baseOrient, local))

	if rig.hasIKTarget {
		alpha := o.ik.TargetSmoothAlpha
		world = rig.lastIKTarget.Add(world.Sub(rig.lastIKTarget).Mul(alpha))
	}
	rig.lastIKTarget = world
	rig.hasIKTarget = true
	return world
}

func (r *ArmRig) anglesByName() map[robot.JointName]float64 {
	out := make(map[robot.JointName]float64, len(r.Channels))
	for _, ch := range r.Channels {
		out[robot.JointName(ch.Name())] = ch.LastCommanded()
	}
	return out
}

func clampBox(v, min, max r3.Vector) r3.Vector {
	return r3.Vector{
		X: clamp(v.X, min.X, max.X),
		Y: clamp(v.Y, min.Y, max.Y),
		Z: clamp(v.Z, min.Z, max.Z),
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
