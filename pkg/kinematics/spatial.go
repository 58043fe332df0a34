// Package kinematics models a serial revolute joint chain and solves
// forward and inverse kinematics over it.
//
// The chain geometry is an explicit table of per-joint link offsets and
// rotation axes captured once from the physical layout, so FK and IK are
// pure arithmetic over that table plus an angle vector.
package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

const defaultEpsilon = 1e-8

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// WrapDeg wraps an angle in degrees to the interval (-180, 180] by the
// shortest path.
func WrapDeg(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// ClampDeg limits a to the closed interval [min, max].
func ClampDeg(a, min, max float64) float64 {
	if a < min {
		return min
	}
	if a > max {
		return max
	}
	return a
}

// AxisAngleQuat builds a unit quaternion representing a rotation of
// angleRad radians about the given axis. The axis is normalized first;
// a near-zero axis yields the identity rotation.
func AxisAngleQuat(axis r3.Vector, angleRad float64) quat.Number {
	n := axis.Norm()
	if n < defaultEpsilon {
		return quat.Number{Real: 1}
	}
	axis = axis.Mul(1 / n)
	s := math.Sin(angleRad / 2)
	return quat.Number{
		Real: math.Cos(angleRad / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
}

// Rotate applies the rotation q to vector v, computing q*v*q^-1.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// RotateInverse applies the inverse of rotation q to vector v.
func RotateInverse(q quat.Number, v r3.Vector) r3.Vector {
	return Rotate(quat.Conj(q), v)
}

// AngleAboutAxisDeg extracts the twist component of a rotation about the
// given axis, in degrees wrapped to (-180, 180]. This is the swing-twist
// decomposition: the rotation is split into a twist about the axis and a
// swing perpendicular to it, and only the twist angle is returned.
func AngleAboutAxisDeg(q quat.Number, axis r3.Vector) float64 {
	n := axis.Norm()
	if n < defaultEpsilon {
		return 0
	}
	axis = axis.Mul(1 / n)
	d := axis.X*q.Imag + axis.Y*q.Jmag + axis.Z*q.Kmag
	twist := quat.Number{
		Real: q.Real,
		Imag: axis.X * d,
		Jmag: axis.Y * d,
		Kmag: axis.Z * d,
	}
	tn := math.Sqrt(twist.Real*twist.Real + twist.Imag*twist.Imag + twist.Jmag*twist.Jmag + twist.Kmag*twist.Kmag)
	if tn < defaultEpsilon {
		// Pure swing of 180 degrees carries no usable twist.
		return 0
	}
	angle := 2 * math.Atan2(d/tn, twist.Real/tn)
	return WrapDeg(RadToDeg(angle))
}

// signedAngleDeg returns the angle from vector a to vector b about the
// given axis, in degrees. Both vectors should already lie in the plane
// perpendicular to the axis.
func signedAngleDeg(a, b, axis r3.Vector) float64 {
	dot := a.Dot(b)
	det := axis.Dot(a.Cross(b))
	return RadToDeg(math.Atan2(det, dot))
}
