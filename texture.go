package lightbake

import (
	"github.com/go-gl/mathgl/mgl32"
)

// FloatImage is an RGBA32F host-memory buffer. It backs every render target
// in the bake pipeline: the atlas lookup, per-layer accumulation buffers,
// probe views and the composited output. A version counter stands in for
// "texture dirty" marking: any consumer holding a GPU-side copy re-uploads
// when the version it last saw differs from Version().
type FloatImage struct {
	Width  int
	Height int
	Pix    []float32 // RGBA, row-major, len = Width*Height*4

	version uint64
}

func NewFloatImage(width, height int) *FloatImage {
	return &FloatImage{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*4),
	}
}

func (img *FloatImage) Index(x, y int) int {
	return (y*img.Width + x) * 4
}

func (img *FloatImage) At(x, y int) (r, g, b, a float32) {
	i := img.Index(x, y)
	return img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
}

func (img *FloatImage) RGB(x, y int) mgl32.Vec3 {
	i := img.Index(x, y)
	return mgl32.Vec3{img.Pix[i], img.Pix[i+1], img.Pix[i+2]}
}

func (img *FloatImage) Set(x, y int, r, g, b, a float32) {
	i := img.Index(x, y)
	img.Pix[i] = r
	img.Pix[i+1] = g
	img.Pix[i+2] = b
	img.Pix[i+3] = a
}

// AddRGB accumulates into the color channels and forces the alpha fill
// marker on. Used from the second bounce pass onward.
func (img *FloatImage) AddRGB(x, y int, rgb mgl32.Vec3) {
	i := img.Index(x, y)
	img.Pix[i] += rgb.X()
	img.Pix[i+1] += rgb.Y()
	img.Pix[i+2] += rgb.Z()
	img.Pix[i+3] = 1
}

func (img *FloatImage) Clear() {
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	img.MarkDirty()
}

// SampleNearest samples with UV in [0,1]x[0,1], clamped. V grows with rows.
func (img *FloatImage) SampleNearest(u, v float32) mgl32.Vec3 {
	x := int(u * float32(img.Width))
	y := int(v * float32(img.Height))
	x = clampInt(x, 0, img.Width-1)
	y = clampInt(y, 0, img.Height-1)
	return img.RGB(x, y)
}

func (img *FloatImage) MarkDirty() {
	img.version++
}

func (img *FloatImage) Version() uint64 {
	return img.version
}

// FillCheckerboard writes the diagnostic pattern used on the very first pass
// of the base layer: alternating gray squares in RGB with alpha left at zero,
// so un-sampled regions stay visually distinguishable while the fill marker
// still reads as empty.
func (img *FloatImage) FillCheckerboard(cell int, dark, bright float32) {
	if cell <= 0 {
		cell = 8
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := dark
			if ((x/cell)+(y/cell))%2 == 0 {
				v = bright
			}
			i := img.Index(x, y)
			img.Pix[i] = v
			img.Pix[i+1] = v
			img.Pix[i+2] = v
			img.Pix[i+3] = 0
		}
	}
	img.MarkDirty()
}

// Texture is an RGBA8 material texture (albedo or emissive input).
type Texture struct {
	Width  int
	Height int
	Texels []uint8 // RGBA, row-major
}

// Sample returns the RGB value at uv with repeat wrapping, as 0..1 floats.
func (t *Texture) Sample(u, v float32) mgl32.Vec3 {
	if t == nil || t.Width == 0 || t.Height == 0 {
		return mgl32.Vec3{1, 1, 1}
	}
	x := int(wrapUnit(u) * float32(t.Width))
	y := int(wrapUnit(v) * float32(t.Height))
	x = clampInt(x, 0, t.Width-1)
	y = clampInt(y, 0, t.Height-1)
	i := (y*t.Width + x) * 4
	return mgl32.Vec3{
		float32(t.Texels[i]) / 255,
		float32(t.Texels[i+1]) / 255,
		float32(t.Texels[i+2]) / 255,
	}
}

func wrapUnit(v float32) float32 {
	v = v - float32(int(v))
	if v < 0 {
		v += 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
