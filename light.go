package lightbake

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type LightKind uint32

const (
	LightKindDirectional LightKind = 0
	LightKindSpot        LightKind = 1
)

// ShadowFrustum bounds the depth pass rendered from a light's point of view.
// Directional lights use an orthographic box of half-width Extent; spot
// lights use a perspective frustum derived from their cone angle. Near/Far
// default to 0.1/100 when zero.
type ShadowFrustum struct {
	Extent float32
	Near   float32
	Far    float32
}

func (f ShadowFrustum) withDefaults() ShadowFrustum {
	if f.Extent <= 0 {
		f.Extent = 10
	}
	if f.Near <= 0 {
		f.Near = 0.1
	}
	if f.Far <= f.Near {
		f.Far = 100
	}
	return f
}

// Light is a registered directional or spot light. Direction need not be
// normalized. Factor "" puts the light on the base layer; any other tag
// bakes its contribution into that factor's own layer.
type Light struct {
	Kind      LightKind
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
	ConeAngle float32 // full cone angle in degrees, spot only
	Shadow    ShadowFrustum
	Factor    string
}

// validate enforces the registration-time light preconditions.
func (l *Light) validate() error {
	switch l.Kind {
	case LightKindDirectional, LightKindSpot:
	default:
		return fmt.Errorf("%w: kind %d", ErrUnsupportedLight, l.Kind)
	}
	if l.Direction.Len() == 0 {
		return fmt.Errorf("%w: zero direction", ErrUnsupportedLight)
	}
	if l.Kind == LightKindSpot && (l.ConeAngle <= 0 || l.ConeAngle >= 180) {
		return fmt.Errorf("%w: spot cone angle %v out of (0,180)", ErrUnsupportedLight, l.ConeAngle)
	}
	return nil
}

// viewProjection returns the matrix used both for the light's shadow pass
// and for shadow lookups during view shading.
func (l *Light) viewProjection() mgl32.Mat4 {
	f := l.Shadow.withDefaults()
	dir := l.Direction.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if abs32(dir.Dot(up)) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	view := mgl32.LookAtV(l.Position, l.Position.Add(dir), up)

	var proj mgl32.Mat4
	if l.Kind == LightKindDirectional {
		proj = mgl32.Ortho(-f.Extent, f.Extent, -f.Extent, f.Extent, f.Near, f.Far)
	} else {
		proj = mgl32.Perspective(mgl32.DegToRad(l.ConeAngle), 1, f.Near, f.Far)
	}
	return proj.Mul4(view)
}
