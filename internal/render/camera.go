// Package render draws renderables to raster images with a trackball
// camera. Drawing goes through gonum/plot onto a vgimg canvas, so the same
// path serves the window, screenshots and movie frames.
package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera defaults match the original trackball.
const (
	DefaultZoom = 30.0
	DefaultFOV  = 40.0 // vertical field of view, degrees

	minZoom   = 1.0
	maxZoom   = 1000.0
	nearPlane = 0.1
	maxPhi    = 89.0
)

// Camera orbits the origin. Theta is the yaw about the vertical axis and
// Phi the pitch, both in degrees; Zoom is the distance from the origin.
type Camera struct {
	Theta float64
	Phi   float64
	Zoom  float64
	FOV   float64

	homeZoom float64
}

// NewCamera returns a camera at theta=0, phi=0 and the given zoom. A
// non-positive zoom uses DefaultZoom.
func NewCamera(zoom float64) *Camera {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	c := &Camera{FOV: DefaultFOV, homeZoom: zoom}
	c.Reset()
	return c
}

// Reset restores theta=0, phi=0 and the initial zoom.
func (c *Camera) Reset() {
	c.Theta = 0
	c.Phi = 0
	c.Zoom = c.homeZoom
}

// Rotate adds to the yaw and pitch. Pitch is clamped short of the poles.
func (c *Camera) Rotate(dTheta, dPhi float64) {
	c.Theta = math.Mod(c.Theta+dTheta, 360)
	c.Phi = math.Max(-maxPhi, math.Min(maxPhi, c.Phi+dPhi))
}

// ZoomBy multiplies the distance by factor; factors below 1 move closer.
func (c *Camera) ZoomBy(factor float64) {
	if factor <= 0 {
		return
	}
	c.Zoom = math.Max(minZoom, math.Min(maxZoom, c.Zoom*factor))
}

// View transforms a world point into camera space, where the camera sits
// at (0, 0, Zoom) looking towards -Z.
func (c *Camera) View(p r3.Vec) r3.Vec {
	yaw := r3.NewRotation(c.Theta*math.Pi/180, r3.Vec{Y: 1})
	pitch := r3.NewRotation(c.Phi*math.Pi/180, r3.Vec{X: 1})
	return pitch.Rotate(yaw.Rotate(p))
}

// Projected is a point on the image plane. X grows right and Y grows up,
// both in pixels from the bottom-left corner. Depth is the distance along
// the view axis.
type Projected struct {
	X, Y  float64
	Depth float64
}

// Project maps p onto a width by height image. ok is false when the point
// lies behind the near plane.
func (c *Camera) Project(p r3.Vec, width, height int) (Projected, bool) {
	v := c.View(p)
	depth := c.Zoom - v.Z
	if depth < nearPlane {
		return Projected{}, false
	}
	f := float64(height) / 2 / math.Tan(c.FOV*math.Pi/360)
	return Projected{
		X:     float64(width)/2 + f*v.X/depth,
		Y:     float64(height)/2 + f*v.Y/depth,
		Depth: depth,
	}, true
}
