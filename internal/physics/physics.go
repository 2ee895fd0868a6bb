// Package physics provides the 2-D vector type and collision helpers shared by
// the simulation and the wire format.
package physics

import "math"

// epsilon is the length below which a vector is treated as zero.
const epsilon = 1e-9

// Vector2D is a 2-D vector in world space. +x points right and +y points down,
// so positive rotations turn clockwise on screen.
//
// Operations return new values; Rotate is the only in-place mutation.
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec is shorthand for Vector2D{X: x, Y: y}.
func Vec(x, y float64) Vector2D {
	return Vector2D{X: x, Y: y}
}

// Add returns v + o.
func (v Vector2D) Add(o Vector2D) Vector2D {
	return Vector2D{X: v.X + o.X, Y: v.Y + o.Y}
}

// Subtract returns v - o.
func (v Vector2D) Subtract(o Vector2D) Vector2D {
	return Vector2D{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v * k.
func (v Vector2D) Scale(k float64) Vector2D {
	return Vector2D{X: v.X * k, Y: v.Y * k}
}

// Length returns the Euclidean length of v.
func (v Vector2D) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Normalize returns v scaled to unit length. A zero vector is returned unchanged.
func (v Vector2D) Normalize() Vector2D {
	l := v.Length()
	if l < epsilon {
		return v
	}
	return Vector2D{X: v.X / l, Y: v.Y / l}
}

// Rotate rotates v in place by the given number of degrees (clockwise-positive).
func (v *Vector2D) Rotate(degrees float64) {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	x := v.X*cos - v.Y*sin
	y := v.X*sin + v.Y*cos
	v.X, v.Y = x, y
}

// ToAngle returns the heading of v in degrees clockwise from "up" (0, -1),
// normalized to [0, 360).
func (v Vector2D) ToAngle() float64 {
	deg := math.Atan2(v.X, -v.Y) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// Distance calculates the Euclidean distance between two points.
func Distance(a, b Vector2D) float64 {
	return a.Subtract(b).Length()
}

// DistanceSquared calculates the squared distance between two points.
// Use this when comparing distances to avoid the sqrt cost.
func DistanceSquared(a, b Vector2D) float64 {
	d := a.Subtract(b)
	return d.X*d.X + d.Y*d.Y
}

// Collides reports whether point lies strictly inside the hit-box of radius
// hitBox centered at center.
func Collides(center, point Vector2D, hitBox uint) bool {
	r := float64(hitBox)
	return DistanceSquared(center, point) < r*r
}
