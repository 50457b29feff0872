package lightbake

import (
	"testing"
)

func fillConstant(img *FloatImage, r, g, b float32) {
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			img.Set(x, y, r, g, b, 1)
		}
	}
}

func TestCompositor_WeightedSum(t *testing.T) {
	base := NewFloatImage(8, 8)
	fillConstant(base, 0.4, 0.4, 0.4)
	lamps := NewFloatImage(8, 8)
	fillConstant(lamps, 1, 0, 0)

	comp := NewCompositor(8, 8)
	comp.SetBaseLayer(base)
	comp.SetLayer("lamps", lamps)
	comp.SetMultiplier("lamps", 0.5)

	out := comp.Composite()
	r, g, b, _ := out.At(3, 3)
	if abs32(r-0.9) > 1e-5 || abs32(g-0.4) > 1e-5 || abs32(b-0.4) > 1e-5 {
		t.Fatalf("Expected 0.4 + 0.5*lamps = (0.9,0.4,0.4), got (%v,%v,%v)", r, g, b)
	}

	// Multipliers are live: re-compositing with a new weight rebuilds the
	// same output buffer.
	comp.SetMultiplier("lamps", 1)
	out2 := comp.Composite()
	if out2 != out {
		t.Fatalf("Expected the compositor to reuse its output buffer")
	}
	r, _, _, _ = out2.At(3, 3)
	if abs32(r-1.4) > 1e-5 {
		t.Fatalf("Expected 0.4 + 1.0*1.0 = 1.4 red, got %v", r)
	}
}

func TestCompositor_FactorsDefaultDark(t *testing.T) {
	base := NewFloatImage(4, 4)
	fillConstant(base, 0.2, 0.2, 0.2)
	sky := NewFloatImage(4, 4)
	fillConstant(sky, 5, 5, 5)

	comp := NewCompositor(4, 4)
	comp.SetBaseLayer(base)
	comp.SetLayer("sky", sky)

	out := comp.Composite()
	r, _, _, _ := out.At(1, 1)
	if abs32(r-0.2) > 1e-5 {
		t.Fatalf("Expected an unset factor multiplier to contribute nothing, got red %v", r)
	}

	comp.SetBaseMultiplier(0)
	out = comp.Composite()
	r, _, _, _ = out.At(1, 1)
	if r != 0 {
		t.Fatalf("Expected a zero base multiplier to black the output, got red %v", r)
	}
}

func TestCompositor_VersionAdvances(t *testing.T) {
	comp := NewCompositor(4, 4)
	comp.SetBaseLayer(NewFloatImage(4, 4))

	v1 := comp.Composite().Version()
	v2 := comp.Composite().Version()
	if v2 <= v1 {
		t.Fatalf("Expected the output version to advance per composite, got %d then %d", v1, v2)
	}
}
