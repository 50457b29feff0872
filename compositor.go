package lightbake

import (
	"sort"
)

// Compositor additively blends the base layer and any number of named
// factor layers into one output texture, each scaled by a live multiplier.
// The base multiplier defaults to 1; factor multipliers default to 0 until
// explicitly set, so a factor's light group is dark until the application
// turns it on. Multipliers may change between frames without rebuilding
// anything, Composite just re-blends.
type Compositor struct {
	width  int
	height int

	base        *FloatImage
	layers      map[string]*FloatImage
	multipliers map[string]float32
	baseMult    float32

	out *FloatImage
}

func NewCompositor(width, height int) *Compositor {
	return &Compositor{
		width:       width,
		height:      height,
		layers:      make(map[string]*FloatImage),
		multipliers: make(map[string]float32),
		baseMult:    1,
	}
}

func (c *Compositor) SetBaseLayer(img *FloatImage) {
	c.base = img
}

func (c *Compositor) SetLayer(factor string, img *FloatImage) {
	c.layers[factor] = img
}

func (c *Compositor) SetBaseMultiplier(m float32) {
	c.baseMult = m
}

func (c *Compositor) SetMultiplier(factor string, m float32) {
	c.multipliers[factor] = m
}

func (c *Compositor) Multiplier(factor string) float32 {
	return c.multipliers[factor]
}

// Output returns the composited texture; nil before the first Composite.
func (c *Compositor) Output() *FloatImage {
	return c.out
}

// Composite re-blends every layer into the output texture:
// out = base*baseMult + sum(layer*multiplier). Layers whose multiplier is
// zero are skipped entirely.
func (c *Compositor) Composite() *FloatImage {
	if c.out == nil {
		c.out = NewFloatImage(c.width, c.height)
	}
	c.out.Clear()

	if c.base != nil && c.baseMult != 0 {
		accumulateScaled(c.out, c.base, c.baseMult)
	}

	// Deterministic blend order; addition commutes but float rounding
	// does not.
	names := make([]string, 0, len(c.layers))
	for name := range c.layers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := c.multipliers[name]
		if m == 0 {
			continue
		}
		accumulateScaled(c.out, c.layers[name], m)
	}

	c.out.MarkDirty()
	return c.out
}

func accumulateScaled(dst, src *FloatImage, scale float32) {
	n := len(dst.Pix)
	if len(src.Pix) < n {
		n = len(src.Pix)
	}
	for i := 0; i < n; i++ {
		dst.Pix[i] += src.Pix[i] * scale
	}
}
