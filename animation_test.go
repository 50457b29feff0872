package lightbake

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func translationOf(m mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{m[12], m[13], m[14]}
}

func TestAnimationClip_SampleInterpolatesAndClamps(t *testing.T) {
	clip := &AnimationClip{
		Translation: []VectorKeyframe{
			{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
			{Time: 2, Value: mgl32.Vec3{4, 0, 0}},
		},
	}

	mid := translationOf(clip.Sample(1))
	if mid.Sub(mgl32.Vec3{2, 0, 0}).Len() > 1e-5 {
		t.Errorf("Expected midpoint translation (2,0,0), got %v", mid)
	}

	before := translationOf(clip.Sample(-5))
	if before.Len() > 1e-5 {
		t.Errorf("Expected clamp to the first key, got %v", before)
	}
	after := translationOf(clip.Sample(10))
	if after.Sub(mgl32.Vec3{4, 0, 0}).Len() > 1e-5 {
		t.Errorf("Expected clamp to the last key, got %v", after)
	}
}

func TestAnimationClip_MissingTracksAreIdentity(t *testing.T) {
	clip := &AnimationClip{}
	if m := clip.Sample(1); m != mgl32.Ident4() {
		t.Errorf("Expected an empty clip to sample to identity, got %v", m)
	}
}

func TestSceneItem_PoseTimeOffset(t *testing.T) {
	clip := &AnimationClip{
		Translation: []VectorKeyframe{
			{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
			{Time: 1, Value: mgl32.Vec3{0, 1, 0}},
		},
	}
	item := SceneItem{
		Transform: mgl32.Ident4(),
		Clip:      clip,
		Time:      0.25, // phase offset into the clip
	}

	got := translationOf(item.modelMatrix(0.25))
	want := translationOf(clip.Sample(0.5))
	if got.Sub(want).Len() > 1e-5 {
		t.Errorf("Expected pose at clip time 0.5, got %v (want %v)", got, want)
	}

	static := SceneItem{Transform: mgl32.Translate3D(1, 2, 3)}
	if static.modelMatrix(7) != static.Transform {
		t.Errorf("Expected items without a clip to ignore the pose time")
	}
}

func TestAnimationClip_RotationSlerp(t *testing.T) {
	clip := &AnimationClip{
		Rotation: []QuaternionKeyframe{
			{Time: 0, Value: mgl32.QuatIdent()},
			{Time: 1, Value: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})},
		},
	}

	m := clip.Sample(0.5)
	rotated := m.Mul4x1(mgl32.Vec4{1, 0, 0, 0}).Vec3()
	want := mgl32.Vec3{cos32(mgl32.DegToRad(45)), 0, -cos32(mgl32.DegToRad(45))}
	if rotated.Sub(want).Len() > 1e-4 {
		t.Errorf("Expected a 45 degree rotation at the midpoint, got %v (want %v)", rotated, want)
	}
}
