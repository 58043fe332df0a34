package kinematics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Limit bounds a joint angle in degrees.
type Limit struct {
	MinDeg float64 `json:"min_deg"`
	MaxDeg float64 `json:"max_deg"`
}

// Joint describes one revolute joint of a chain: its rotation axis in
// the joint-local frame and its angle limits.
type Joint struct {
	Name  string    `json:"name"`
	Axis  r3.Vector `json:"axis"`
	Limit Limit     `json:"limit"`
}

// ChainConfig is a one-time snapshot of the physical arm layout with
// every joint at its zero angle, expressed in the world frame. The chain
// caches link offsets from it so that later FK/IK calls never touch the
// live arm.
type ChainConfig struct {
	Joints []Joint
	// RestPositions holds each joint origin in the world frame at the
	// zero pose, base first.
	RestPositions []r3.Vector
	// EndEffector is the tool point in the world frame at the zero pose.
	EndEffector r3.Vector
	// BaseOrientation is the world orientation of the chain's parent
	// frame. Zero value is treated as identity.
	BaseOrientation quat.Number
}

// Chain is a serial revolute joint chain with cached geometry.
//
// The offset table is written by InitializeLinkOffsets and read-only
// afterwards; callers that change the physical layout must call
// Reinitialize before the next FK or IK call.
type Chain struct {
	joints     []Joint
	basePos    r3.Vector
	baseOrient quat.Number

	// offsets[i] is the vector from joint i to joint i+1 (to the end
	// effector for the last joint), in the base frame at zero pose.
	offsets     []r3.Vector
	restPos     []r3.Vector
	endEffector r3.Vector
	initialized bool
}

// NewChain builds a chain from a layout snapshot and caches its link
// offsets.
func NewChain(cfg ChainConfig) (*Chain, error) {
	if len(cfg.Joints) == 0 {
		return nil, errors.New("chain needs at least one joint")
	}
	if len(cfg.RestPositions) != len(cfg.Joints) {
		return nil, errors.Errorf("have %d rest positions for %d joints", len(cfg.RestPositions), len(cfg.Joints))
	}
	base := cfg.BaseOrientation
	if base == (quat.Number{}) {
		base = quat.Number{Real: 1}
	}
	c := &Chain{
		joints:      append([]Joint(nil), cfg.Joints...),
		basePos:     cfg.RestPositions[0],
		baseOrient:  base,
		restPos:     append([]r3.Vector(nil), cfg.RestPositions...),
		endEffector: cfg.EndEffector,
	}
	c.InitializeLinkOffsets()
	return c, nil
}

// DOF returns the number of joints in the chain.
func (c *Chain) DOF() int {
	return len(c.joints)
}

// BasePosition returns the world position of the chain's base joint.
func (c *Chain) BasePosition() r3.Vector {
	return c.basePos
}

// BaseOrientation returns the world orientation of the chain's parent
// frame.
func (c *Chain) BaseOrientation() quat.Number {
	return c.baseOrient
}

// Joint returns the configuration of joint i.
func (c *Chain) Joint(i int) Joint {
	return c.joints[i]
}

// LinkOffsets returns a copy of the cached link offset table.
func (c *Chain) LinkOffsets() []r3.Vector {
	return append([]r3.Vector(nil), c.offsets...)
}

// InitializeLinkOffsets fills the cached offset table from the stored
// layout snapshot. It is idempotent: calling it again without a layout
// change produces identical offsets.
func (c *Chain) InitializeLinkOffsets() {
	n := len(c.joints)
	offsets := make([]r3.Vector, n)
	for i := 0; i < n; i++ {
		var next r3.Vector
		if i == n-1 {
			next = c.endEffector
		} else {
			next = c.restPos[i+1]
		}
		offsets[i] = RotateInverse(c.baseOrient, next.Sub(c.restPos[i]))
	}
	c.offsets = offsets
	c.initialized = true
}

// Reinitialize replaces the layout snapshot and rebuilds the offset
// cache. Use this when the physical geometry changes at runtime.
func (c *Chain) Reinitialize(restPositions []r3.Vector, endEffector r3.Vector) error {
	if len(restPositions) != len(c.joints) {
		return errors.Errorf("have %d rest positions for %d joints", len(restPositions), len(c.joints))
	}
	c.restPos = append([]r3.Vector(nil), restPositions...)
	c.basePos = restPositions[0]
	c.endEffector = endEffector
	c.InitializeLinkOffsets()
	return nil
}

// ClampToLimits bounds a candidate angle for joint i to its limits.
func (c *Chain) ClampToLimits(i int, deg float64) float64 {
	lim := c.joints[i].Limit
	return ClampDeg(deg, lim.MinDeg, lim.MaxDeg)
}

// accumulate runs the FK recurrence through joint `through` (exclusive)
// and returns the accumulated world position and orientation. Angles are
// degrees. Each joint rotates about its axis expressed in the frame
// accumulated so far, so upstream joints reorient downstream axes.
func (c *Chain) accumulate(angles []float64, through int) (r3.Vector, quat.Number) {
	pos := c.basePos
	q := c.baseOrient
	for i := 0; i < through; i++ {
		worldAxis := Rotate(q, c.joints[i].Axis)
		q = quat.Mul(AxisAngleQuat(worldAxis, DegToRad(angleAt(angles, i))), q)
		pos = pos.Add(Rotate(q, c.offsets[i]))
	}
	return pos, q
}

// EndEffectorPosition computes the world position of the end effector
// for the given angle vector (degrees). Pure function of the angles and
// the cached offsets.
func (c *Chain) EndEffectorPosition(angles []float64) r3.Vector {
	pos, _ := c.accumulate(angles, len(c.joints))
	return pos
}

// JointPosition computes the world position of joint i's origin for the
// given angle vector.
func (c *Chain) JointPosition(angles []float64, i int) r3.Vector {
	pos, _ := c.accumulate(angles, i)
	return pos
}

// JointRotation computes the accumulated world orientation through
// joint i (inclusive of joint i's own rotation).
func (c *Chain) JointRotation(angles []float64, i int) quat.Number {
	_, q := c.accumulate(angles, i)
	worldAxis := Rotate(q, c.joints[i].Axis)
	return quat.Mul(AxisAngleQuat(worldAxis, DegToRad(angleAt(angles, i))), q)
}

// JointAxisWorld computes joint i's rotation axis in the world frame for
// the given angle vector. The axis is invariant under the joint's own
// rotation, so upstream joints alone determine it.
func (c *Chain) JointAxisWorld(angles []float64, i int) r3.Vector {
	_, q := c.accumulate(angles, i)
	return Rotate(q, c.joints[i].Axis)
}

func angleAt(angles []float64, i int) float64 {
	if i >= len(angles) {
		return 0
	}
	return angles[i]
}
