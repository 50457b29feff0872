package lightbake

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// constantDevice fills every view with a single color, an environment with
// uniform radiance in all directions.
type constantDevice struct {
	color mgl32.Vec3
	calls int
}

func (d *constantDevice) RenderView(scene *LightScene, view ProbeView, dst *FloatImage) error {
	d.calls++
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			dst.Set(x, y, d.color.X(), d.color.Y(), d.color.Z(), 1)
		}
	}
	return nil
}

type failingDevice struct {
	err error
}

func (d *failingDevice) RenderView(scene *LightScene, view ProbeView, dst *FloatImage) error {
	return d.err
}

func TestProbeWeights_SolidAngleShape(t *testing.T) {
	weights := probeWeights(8)
	for i, w := range weights {
		if w <= 0 || w > 1 {
			t.Fatalf("weight %d out of (0,1]: %v", i, w)
		}
	}

	// The center pixels look straight down the view axis and must carry the
	// largest weight; corners see the image plane at the steepest angle.
	center := weights[4*8+4]
	corner := weights[0]
	if center <= corner {
		t.Errorf("Expected center weight %v to exceed corner weight %v", center, corner)
	}
}

func TestProbeSampler_ConstantEnvironment(t *testing.T) {
	sampler := NewProbeSampler(8, nil)
	dev := &constantDevice{color: mgl32.Vec3{0.25, 0.5, 0.75}}

	var got mgl32.Vec3
	consumed := false
	sampler.Queue(ProbeRequest{
		Point:  mgl32.Vec3{0, 0, 0},
		Normal: mgl32.Vec3{0, 1, 0},
		TanU:   mgl32.Vec3{1, 0, 0},
		TanV:   mgl32.Vec3{0, 0, 1},
		Consume: func(radiance mgl32.Vec3) {
			got = radiance
			consumed = true
		},
	})

	if err := sampler.Flush(dev, nil); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if !consumed {
		t.Fatalf("Expected the consume closure to run")
	}
	if dev.calls != 5 {
		t.Errorf("Expected 5 views per texel, got %d", dev.calls)
	}

	// A weighted average of a constant is the constant.
	if got.Sub(dev.color).Len() > 1e-4 {
		t.Errorf("Expected constant radiance %v, got %v", dev.color, got)
	}
	if sampler.Pending() != 0 {
		t.Errorf("Expected the queue to drain, %d pending", sampler.Pending())
	}
}

func TestProbeSampler_FlushReportsFirstError(t *testing.T) {
	sampler := NewProbeSampler(4, nil)
	renderErr := errors.New("device lost")
	dev := &failingDevice{err: renderErr}

	consumed := 0
	for i := 0; i < 3; i++ {
		sampler.Queue(ProbeRequest{
			Normal:  mgl32.Vec3{0, 1, 0},
			TanU:    mgl32.Vec3{1, 0, 0},
			TanV:    mgl32.Vec3{0, 0, 1},
			Consume: func(mgl32.Vec3) { consumed++ },
		})
	}

	if err := sampler.Flush(dev, nil); !errors.Is(err, renderErr) {
		t.Fatalf("Expected the render error back, got %v", err)
	}
	if consumed != 0 {
		t.Errorf("Expected no consume calls on failure, got %d", consumed)
	}
	if sampler.Pending() != 0 {
		t.Errorf("Expected the queue to drain even on failure, %d pending", sampler.Pending())
	}
}
