// Package retarget maps raw source joint angles onto safe robot drive
// targets through a per-joint filtering pipeline: calibration offset,
// dead-zone with hysteresis, low-pass smoothing, limit shaping and rate
// limiting.
package retarget

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/openarm-robotics/armteleop/pkg/kinematics"
)

// Target is one drive command: the shaped angle plus the drive
// parameters forwarded unmodified to the actuation layer.
type Target struct {
	AngleDeg   float64
	Stiffness  float64
	Damping    float64
	ForceLimit float64
}

// Actuator consumes per-joint drive targets, once per control tick.
// Implementations are fire-and-forget; they never report back into the
// pipeline.
type Actuator interface {
	SetJointTarget(joint string, t Target)
}

// Config holds the static mapping parameters for one joint. OffsetDeg
// is the only field rewritten at runtime, by calibration.
type Config struct {
	Name string `json:"name"`
	// Axis is the local axis whose twist component is read from source
	// orientation samples.
	Axis   r3.Vector `json:"axis"`
	MinDeg float64   `json:"min_deg"`
	MaxDeg float64   `json:"max_deg"`

	Scale              float64 `json:"scale"`
	OffsetDeg          float64 `json:"offset_deg"`
	DeadZoneDeg        float64 `json:"dead_zone_deg"`
	HysteresisDeg      float64 `json:"hysteresis_deg"`
	SmoothAlpha        float64 `json:"smooth_alpha"`
	RateLimitDegPerSec float64 `json:"rate_limit_deg_per_sec"`
	SoftLimitMarginDeg float64 `json:"soft_limit_margin_deg"`

	Stiffness  float64 `json:"stiffness"`
	Damping    float64 `json:"damping"`
	ForceLimit float64 `json:"force_limit"`
}

// Channel is one controllable joint with its runtime filter and lock
// state. All state is owned by the control tick goroutine.
type Channel struct {
	cfg Config
	act Actuator

	filteredDeg float64
	lastCmdDeg  float64
	hasFilter   bool
	hasCmd      bool
	inDeadHold  bool

	locked          bool
	lockedTargetDeg float64

	neutral    quat.Number
	hasNeutral bool
}

// NewChannel creates a channel bound to an actuator. A nil actuator is
// allowed; targets are then computed but not delivered anywhere. Scale
// and SmoothAlpha default to 1 when left zero.
func NewChannel(cfg Config, act Actuator) *Channel {
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}
	if cfg.SmoothAlpha == 0 {
		cfg.SmoothAlpha = 1
	}
	return &Channel{cfg: cfg, act: act}
}

// Name returns the joint name.
func (ch *Channel) Name() string {
	return ch.cfg.Name
}

// Config returns the channel's mapping parameters.
func (ch *Channel) Config() Config {
	return ch.cfg
}

// SetOffsetDeg rewrites the calibration offset.
func (ch *Channel) SetOffsetDeg(deg float64) {
	ch.cfg.OffsetDeg = deg
}

// LastCommanded returns the most recent commanded angle in degrees.
func (ch *Channel) LastCommanded() float64 {
	return ch.lastCmdDeg
}

// CaptureNeutral stores the given orientation as the joint's neutral
// reading; later samples are measured as deltas from it.
func (ch *Channel) CaptureNeutral(q quat.Number) {
	ch.neutral = q
	ch.hasNeutral = true
}

// Lock pins the channel to a fixed target. While locked, Apply ignores
// input and returns the locked target, with all filter state pulled to
// it so unlocking resumes tracking without a jump.
func (ch *Channel) Lock(targetDeg float64) {
	ch.locked = true
	ch.lockedTargetDeg = kinematics.ClampDeg(targetDeg, ch.cfg.MinDeg, ch.cfg.MaxDeg)
}

// Unlock releases a lock.
func (ch *Channel) Unlock() {
	ch.locked = false
}

// IsLocked reports whether the channel is locked.
func (ch *Channel) IsLocked() bool {
	return ch.locked
}

// RawAngleDeg extracts the raw source angle for this channel from an
// orientation sample: the twist about the configured axis, relative to
// the captured neutral when one exists, wrapped to (-180, 180].
func (ch *Channel) RawAngleDeg(q quat.Number) float64 {
	raw := kinematics.AngleAboutAxisDeg(q, ch.cfg.Axis)
	if ch.hasNeutral {
		raw = kinematics.WrapDeg(raw - kinematics.AngleAboutAxisDeg(ch.neutral, ch.cfg.Axis))
	}
	return raw
}

// ApplySample runs the pipeline on an orientation sample.
func (ch *Channel) ApplySample(q quat.Number, dt float64) float64 {
	return ch.Apply(ch.RawAngleDeg(q), dt)
}

// Apply runs the full pipeline on a raw source angle and commits the
// resulting drive target. dt is the control tick duration in seconds.
func (ch *Channel) Apply(rawDeg, dt float64) float64 {
	if ch.locked {
		ch.filteredDeg = ch.lockedTargetDeg
		ch.hasFilter = true
		ch.commit(ch.lockedTargetDeg)
		return ch.lockedTargetDeg
	}

	mapped := ch.cfg.OffsetDeg + ch.cfg.Scale*kinematics.WrapDeg(rawDeg)

	// Dead zone about zero, with a wider release band so a signal
	// hovering at the edge cannot chatter.
	if ch.inDeadHold {
		if math.Abs(mapped) > ch.cfg.DeadZoneDeg+ch.cfg.HysteresisDeg {
			ch.inDeadHold = false
		} else {
			mapped = 0
		}
	} else if math.Abs(mapped) < ch.cfg.DeadZoneDeg {
		ch.inDeadHold = true
		mapped = 0
	}

	alpha := clamp01(ch.cfg.SmoothAlpha)
	if !ch.hasFilter {
		ch.filteredDeg = mapped
		ch.hasFilter = true
	} else {
		ch.filteredDeg += (mapped - ch.filteredDeg) * alpha
	}

	target := kinematics.ClampDeg(ch.filteredDeg, ch.cfg.MinDeg, ch.cfg.MaxDeg)
	target = ch.softLimit(target)

	if ch.cfg.RateLimitDegPerSec > 0 && ch.hasCmd {
		maxStep := ch.cfg.RateLimitDegPerSec * dt
		target = kinematics.ClampDeg(target, ch.lastCmdDeg-maxStep, ch.lastCmdDeg+maxStep)
	}

	ch.commit(target)
	return target
}

// SetTargetDirect bypasses the filtering pipeline, hard-clamps the
// angle and commits it with the channel's drive parameters. Used when
// an IK solution owns this joint for the tick.
func (ch *Channel) SetTargetDirect(angleDeg float64) float64 {
	target := kinematics.ClampDeg(angleDeg, ch.cfg.MinDeg, ch.cfg.MaxDeg)
	ch.commit(target)
	return target
}

// softLimit decelerates the target inside the margin next to either
// bound by blending it toward the margin boundary.
func (ch *Channel) softLimit(target float64) float64 {
	margin := ch.cfg.SoftLimitMarginDeg
	if margin <= 0 {
		return target
	}
	upper := ch.cfg.MaxDeg - margin
	if target > upper {
		frac := (target - upper) / margin
		return lerp(target, upper, frac)
	}
	lower := ch.cfg.MinDeg + margin
	if target < lower {
		frac := (lower - target) / margin
		return lerp(target, lower, frac)
	}
	return target
}

func (ch *Channel) commit(target float64) {
	ch.lastCmdDeg = target
	ch.hasCmd = true
	if ch.act == nil {
		return
	}
	ch.act.SetJointTarget(ch.cfg.Name, Target{
		AngleDeg:   target,
		Stiffness:  ch.cfg.Stiffness,
		Damping:    ch.cfg.Damping,
		ForceLimit: ch.cfg.ForceLimit,
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
