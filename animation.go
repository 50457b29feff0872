package lightbake

import (
	"github.com/go-gl/mathgl/mgl32"
)

// VectorKeyframe / QuaternionKeyframe are single keys of a TRS track.
type VectorKeyframe struct {
	Time  float32
	Value mgl32.Vec3
}

type QuaternionKeyframe struct {
	Time  float32
	Value mgl32.Quat
}

// AnimationClip is a single rigid TRS track. Items registered with a clip
// are baked in the pose the clip yields at their evaluation time, so one
// renderer per (factor, time) pair can bake distinct keyframe poses of the
// same scene.
type AnimationClip struct {
	Name        string
	Translation []VectorKeyframe
	Rotation    []QuaternionKeyframe
	Scale       []VectorKeyframe
}

// Sample evaluates the clip at time t into a model matrix. Keys are assumed
// sorted by time; t is clamped to the track range. Missing tracks fall back
// to identity.
func (c *AnimationClip) Sample(t float32) mgl32.Mat4 {
	translation := sampleVec3(c.Translation, t, mgl32.Vec3{})
	scale := sampleVec3(c.Scale, t, mgl32.Vec3{1, 1, 1})
	rotation := sampleQuat(c.Rotation, t)

	m := mgl32.Translate3D(translation.X(), translation.Y(), translation.Z())
	m = m.Mul4(rotation.Mat4())
	m = m.Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
	return m
}

func sampleVec3(keys []VectorKeyframe, t float32, def mgl32.Vec3) mgl32.Vec3 {
	if len(keys) == 0 {
		return def
	}
	if t <= keys[0].Time {
		return keys[0].Value
	}
	last := keys[len(keys)-1]
	if t >= last.Time {
		return last.Value
	}
	for i := 1; i < len(keys); i++ {
		if t < keys[i].Time {
			a, b := keys[i-1], keys[i]
			f := (t - a.Time) / (b.Time - a.Time)
			return a.Value.Add(b.Value.Sub(a.Value).Mul(f))
		}
	}
	return last.Value
}

func sampleQuat(keys []QuaternionKeyframe, t float32) mgl32.Quat {
	if len(keys) == 0 {
		return mgl32.QuatIdent()
	}
	if t <= keys[0].Time {
		return keys[0].Value
	}
	last := keys[len(keys)-1]
	if t >= last.Time {
		return last.Value
	}
	for i := 1; i < len(keys); i++ {
		if t < keys[i].Time {
			a, b := keys[i-1], keys[i]
			f := (t - a.Time) / (b.Time - a.Time)
			return mgl32.QuatSlerp(a.Value, b.Value, f)
		}
	}
	return last.Value
}
