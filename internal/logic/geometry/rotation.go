package geometry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
)

// Mat3 is a 3x3 matrix applied to row vectors: out = v · M.
type Mat3 [3][3]float64

// Identity returns the identity matrix.
func Identity() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// RotationMatrix returns the rotation of angle about axis in the
// quaternion (axis-angle) form. The axis is normalized; a zero axis
// yields the identity.
func RotationMatrix(angle s1.Angle, axis r3.Vector) Mat3 {
	if axis.Norm2() == 0 {
		return Identity()
	}
	axis = axis.Normalize()
	half := angle.Radians() / 2
	a := math.Cos(half)
	s := -math.Sin(half)
	b, c, d := axis.X*s, axis.Y*s, axis.Z*s
	aa, bb, cc, dd := a*a, b*b, c*c, d*d
	bc, ad, ac, ab, bd, cd := b*c, a*d, a*c, a*b, b*d, c*d
	return Mat3{
		{aa + bb - cc - dd, 2 * (bc + ad), 2 * (bd - ac)},
		{2 * (bc - ad), aa + cc - bb - dd, 2 * (cd + ab)},
		{2 * (bd + ac), 2 * (cd - ab), aa + dd - bb - cc},
	}
}

// Mul returns m · n.
func (m Mat3) Mul(n Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return out
}

// Apply returns the row vector v · m.
func (m Mat3) Apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: v.X*m[0][0] + v.Y*m[1][0] + v.Z*m[2][0],
		Y: v.X*m[0][1] + v.Y*m[1][1] + v.Z*m[2][1],
		Z: v.X*m[0][2] + v.Y*m[1][2] + v.Z*m[2][2],
	}
}

// ViewRotation combines pitch, yaw and roll into one matrix. Pitch turns
// about X, yaw about Y, and roll about the forward axis after the first
// two rotations.
func ViewRotation(yaw, pitch, roll s1.Angle) Mat3 {
	rx := RotationMatrix(pitch, r3.Vector{X: 1})
	ry := RotationMatrix(-yaw, r3.Vector{Y: 1})
	rxy := rx.Mul(ry)
	if roll == 0 {
		return rxy
	}
	forward := rxy.Apply(r3.Vector{Z: 1})
	return rxy.Mul(RotationMatrix(roll, forward))
}
