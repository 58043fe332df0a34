package kinematics

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// planarChain builds an n-link chain in the XY plane: every joint
// rotates about +Z and every link runs along +X at the zero pose.
func planarChain(t *testing.T, lengths ...float64) *Chain {
	t.Helper()
	joints := make([]Joint, len(lengths))
	rest := make([]r3.Vector, len(lengths))
	x := 0.0
	for i, l := range lengths {
		joints[i] = Joint{
			Axis:  r3.Vector{Z: 1},
			Limit: Limit{MinDeg: -180, MaxDeg: 180},
		}
		rest[i] = r3.Vector{X: x}
		x += l
	}
	c, err := NewChain(ChainConfig{
		Joints:        joints,
		RestPositions: rest,
		EndEffector:   r3.Vector{X: x},
	})
	test.That(t, err, test.ShouldBeNil)
	return c
}

func TestLinkOffsetsIdempotent(t *testing.T) {
	c := planarChain(t, 0.3, 0.2)
	first := c.LinkOffsets()
	c.InitializeLinkOffsets()
	second := c.LinkOffsets()
	test.That(t, second, test.ShouldResemble, first)
}

func TestEndEffectorPositionDeterministic(t *testing.T) {
	c := planarChain(t, 0.3, 0.2, 0.1)
	angles := []float64{31.7, -48.2, 77.9}
	a := c.EndEffectorPosition(angles)
	b := c.EndEffectorPosition(angles)
	test.That(t, b, test.ShouldResemble, a)
}

func TestForwardKinematicsPlanar(t *testing.T) {
	c := planarChain(t, 0.3, 0.2)

	// Zero pose: both links extended along +X.
	ee := c.EndEffectorPosition([]float64{0, 0})
	test.That(t, ee.X, test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, ee.Y, test.ShouldAlmostEqual, 0, 1e-9)

	// Base joint at 90 degrees folds the whole arm onto +Y.
	ee = c.EndEffectorPosition([]float64{90, 0})
	test.That(t, ee.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, ee.Y, test.ShouldAlmostEqual, 0.5, 1e-9)

	// Elbow at 90 degrees: first link along +X, second along +Y.
	ee = c.EndEffectorPosition([]float64{0, 90})
	test.That(t, ee.X, test.ShouldAlmostEqual, 0.3, 1e-9)
	test.That(t, ee.Y, test.ShouldAlmostEqual, 0.2, 1e-9)
}

func TestJointPositionAndAxis(t *testing.T) {
	c := planarChain(t, 0.3, 0.2)

	p0 := c.JointPosition([]float64{90, 0}, 0)
	test.That(t, p0, test.ShouldResemble, r3.Vector{})

	// The elbow rides on the rotated first link.
	p1 := c.JointPosition([]float64{90, 0}, 1)
	test.That(t, p1.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, p1.Y, test.ShouldAlmostEqual, 0.3, 1e-9)

	// A Z axis stays Z under planar rotation.
	axis := c.JointAxisWorld([]float64{90, 45}, 1)
	test.That(t, axis.Z, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestUpstreamJointReorientsDownstreamAxis(t *testing.T) {
	// Two joints: the first twists about +X, the second flexes about +Z.
	// Twisting the first by 90 degrees must carry the second's axis from
	// +Z to -Y.
	c, err := NewChain(ChainConfig{
		Joints: []Joint{
			{Axis: r3.Vector{X: 1}, Limit: Limit{MinDeg: -180, MaxDeg: 180}},
			{Axis: r3.Vector{Z: 1}, Limit: Limit{MinDeg: -180, MaxDeg: 180}},
		},
		RestPositions: []r3.Vector{{}, {X: 0.3}},
		EndEffector:   r3.Vector{X: 0.5},
	})
	test.That(t, err, test.ShouldBeNil)

	axis := c.JointAxisWorld([]float64{90, 0}, 1)
	test.That(t, axis.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, axis.Y, test.ShouldAlmostEqual, -1, 1e-9)
	test.That(t, axis.Z, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestReinitializeRebuildsCache(t *testing.T) {
	c := planarChain(t, 0.3, 0.2)
	err := c.Reinitialize([]r3.Vector{{}, {X: 0.4}}, r3.Vector{X: 0.7})
	test.That(t, err, test.ShouldBeNil)

	ee := c.EndEffectorPosition([]float64{0, 0})
	test.That(t, ee.X, test.ShouldAlmostEqual, 0.7, 1e-9)

	err = c.Reinitialize([]r3.Vector{{}}, r3.Vector{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestChainConfigValidation(t *testing.T) {
	_, err := NewChain(ChainConfig{})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewChain(ChainConfig{
		Joints:        []Joint{{Axis: r3.Vector{Z: 1}}},
		RestPositions: []r3.Vector{{}, {X: 1}},
	})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWrapDeg(t *testing.T) {
	test.That(t, WrapDeg(190), test.ShouldAlmostEqual, -170, 1e-9)
	test.That(t, WrapDeg(-190), test.ShouldAlmostEqual, 170, 1e-9)
	test.That(t, WrapDeg(180), test.ShouldAlmostEqual, 180, 1e-9)
	test.That(t, WrapDeg(-180), test.ShouldAlmostEqual, 180, 1e-9)
	test.That(t, WrapDeg(540), test.ShouldAlmostEqual, 180, 1e-9)
}

func TestAngleAboutAxisDeg(t *testing.T) {
	q := AxisAngleQuat(r3.Vector{Z: 1}, DegToRad(40))
	test.That(t, AngleAboutAxisDeg(q, r3.Vector{Z: 1}), test.ShouldAlmostEqual, 40, 1e-9)
	test.That(t, AngleAboutAxisDeg(q, r3.Vector{X: 1}), test.ShouldAlmostEqual, 0, 1e-9)

	// Twist extraction ignores swing about other axes.
	swing := AxisAngleQuat(r3.Vector{X: 1}, DegToRad(25))
	combined := quat.Mul(swing, q)
	got := AngleAboutAxisDeg(combined, r3.Vector{Z: 1})
	test.That(t, math.Abs(got-40), test.ShouldBeLessThan, 1.0)
}

func TestRotateRoundTrip(t *testing.T) {
	q := AxisAngleQuat(r3.Vector{X: 0.3, Y: -0.5, Z: 0.8}, DegToRad(72))
	v := r3.Vector{X: 1.2, Y: -0.4, Z: 0.9}
	back := RotateInverse(q, Rotate(q, v))
	test.That(t, back.X, test.ShouldAlmostEqual, v.X, 1e-9)
	test.That(t, back.Y, test.ShouldAlmostEqual, v.Y, 1e-9)
	test.That(t, back.Z, test.ShouldAlmostEqual, v.Z, 1e-9)
}
