package lightbake

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// varyings are the per-vertex attributes interpolated across a triangle.
// face carries (faceLocalX, faceLocalY, encodedFaceId) during the atlas
// lookup pass and is unused otherwise.
type varyings struct {
	world   mgl32.Vec3
	normal  mgl32.Vec3
	uv      mgl32.Vec2
	atlasUV mgl32.Vec2
	face    mgl32.Vec3
}

type rasterVertex struct {
	clip mgl32.Vec4
	v    varyings
}

type fragment struct {
	x, y  int
	depth float32
	v     varyings
}

// shadeFn computes a fragment's RGBA output. Returning false discards the
// fragment (after it already passed the depth test the depth write still
// happens, which is what the depth-only shadow pass relies on).
type shadeFn func(frag fragment) (mgl32.Vec4, bool)

// rasterizer draws triangles into a float color target and an optional
// depth buffer. Screen y grows with +NDC y, so row y of the target
// corresponds directly to atlas v during the lookup pass. Interpolation is
// affine; no backface culling, scene surfaces are treated as one-sided by
// the shading, not the raster stage.
type rasterizer struct {
	width  int
	height int
	color  []float32 // RGBA, may be nil for depth-only passes
	depth  []float32 // nil disables depth testing
}

func newRasterizer(dst *FloatImage, withDepth bool) *rasterizer {
	r := &rasterizer{
		width:  dst.Width,
		height: dst.Height,
		color:  dst.Pix,
	}
	if withDepth {
		r.depth = make([]float32, dst.Width*dst.Height)
		r.clearDepth()
	}
	return r
}

func newDepthRasterizer(width, height int) *rasterizer {
	r := &rasterizer{
		width:  width,
		height: height,
		depth:  make([]float32, width*height),
	}
	r.clearDepth()
	return r
}

func (r *rasterizer) clearDepth() {
	n := len(r.depth)
	if n == 0 {
		return
	}
	r.depth[0] = math.MaxFloat32
	for i := 1; i < n; i *= 2 {
		copy(r.depth[i:], r.depth[:i])
	}
}

func (r *rasterizer) depthAt(x, y int) float32 {
	return r.depth[y*r.width+x]
}

// drawTriangle clips against the near plane and rasterizes the result.
// Near clipping matters here: probe views are rendered with the eye sitting
// on a scene surface, so the probe's own face regularly straddles the
// camera plane.
func (r *rasterizer) drawTriangle(v0, v1, v2 rasterVertex, shade shadeFn) {
	clipped := clipNear([]rasterVertex{v0, v1, v2})
	for i := 2; i < len(clipped); i++ {
		r.rasterize(clipped[0], clipped[i-1], clipped[i], shade)
	}
}

const nearClipEpsilon = 1e-5

// clipNear runs Sutherland-Hodgman against the z+w=0 plane.
func clipNear(verts []rasterVertex) []rasterVertex {
	out := make([]rasterVertex, 0, len(verts)+1)
	for i := 0; i < len(verts); i++ {
		cur := verts[i]
		prev := verts[(i+len(verts)-1)%len(verts)]
		curDist := cur.clip.Z() + cur.clip.W()
		prevDist := prev.clip.Z() + prev.clip.W()
		curIn := curDist > nearClipEpsilon
		prevIn := prevDist > nearClipEpsilon

		if curIn != prevIn {
			t := prevDist / (prevDist - curDist)
			out = append(out, lerpVertex(prev, cur, t))
		}
		if curIn {
			out = append(out, cur)
		}
	}
	return out
}

func lerpVertex(a, b rasterVertex, t float32) rasterVertex {
	return rasterVertex{
		clip: a.clip.Add(b.clip.Sub(a.clip).Mul(t)),
		v: varyings{
			world:   a.v.world.Add(b.v.world.Sub(a.v.world).Mul(t)),
			normal:  a.v.normal.Add(b.v.normal.Sub(a.v.normal).Mul(t)),
			uv:      a.v.uv.Add(b.v.uv.Sub(a.v.uv).Mul(t)),
			atlasUV: a.v.atlasUV.Add(b.v.atlasUV.Sub(a.v.atlasUV).Mul(t)),
			face:    a.v.face.Add(b.v.face.Sub(a.v.face).Mul(t)),
		},
	}
}

type screenVertex struct {
	x, y, z float32
	v       varyings
}

func (r *rasterizer) rasterize(v0, v1, v2 rasterVertex, shade shadeFn) {
	var sv [3]screenVertex
	for i, vert := range [3]rasterVertex{v0, v1, v2} {
		w := vert.clip.W()
		if w == 0 {
			return
		}
		inv := 1 / w
		sv[i].x = (vert.clip.X()*inv + 1) * 0.5 * float32(r.width)
		sv[i].y = (vert.clip.Y()*inv + 1) * 0.5 * float32(r.height)
		sv[i].z = vert.clip.Z() * inv
		sv[i].v = vert.v
	}

	minX := clampInt(int(floor32(min3(sv[0].x, sv[1].x, sv[2].x))), 0, r.width-1)
	maxX := clampInt(int(ceil32(max3(sv[0].x, sv[1].x, sv[2].x))), 0, r.width-1)
	minY := clampInt(int(floor32(min3(sv[0].y, sv[1].y, sv[2].y))), 0, r.height-1)
	maxY := clampInt(int(ceil32(max3(sv[0].y, sv[1].y, sv[2].y))), 0, r.height-1)

	area := edge(sv[0].x, sv[0].y, sv[1].x, sv[1].y, sv[2].x, sv[2].y)
	if area == 0 {
		return
	}
	if area < 0 {
		// Normalize winding so the inside test below works for both
		// orientations; nothing is culled.
		sv[1], sv[2] = sv[2], sv[1]
		area = -area
	}
	invArea := 1 / area

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			py := float32(y) + 0.5

			w0 := edge(sv[1].x, sv[1].y, sv[2].x, sv[2].y, px, py) * invArea
			w1 := edge(sv[2].x, sv[2].y, sv[0].x, sv[0].y, px, py) * invArea
			w2 := 1 - w0 - w1

			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*sv[0].z + w1*sv[1].z + w2*sv[2].z
			if r.depth != nil {
				di := y*r.width + x
				if z >= r.depth[di] {
					continue
				}
				r.depth[di] = z
			}

			if r.color == nil && shade == nil {
				continue
			}

			frag := fragment{
				x: x, y: y, depth: z,
				v: varyings{
					world:   baryVec3(sv[0].v.world, sv[1].v.world, sv[2].v.world, w0, w1, w2),
					normal:  baryVec3(sv[0].v.normal, sv[1].v.normal, sv[2].v.normal, w0, w1, w2),
					uv:      baryVec2(sv[0].v.uv, sv[1].v.uv, sv[2].v.uv, w0, w1, w2),
					atlasUV: baryVec2(sv[0].v.atlasUV, sv[1].v.atlasUV, sv[2].v.atlasUV, w0, w1, w2),
					face:    baryVec3(sv[0].v.face, sv[1].v.face, sv[2].v.face, w0, w1, w2),
				},
			}

			if shade == nil {
				continue
			}
			rgba, ok := shade(frag)
			if !ok || r.color == nil {
				continue
			}
			ci := (y*r.width + x) * 4
			r.color[ci] = rgba.X()
			r.color[ci+1] = rgba.Y()
			r.color[ci+2] = rgba.Z()
			r.color[ci+3] = rgba.W()
		}
	}
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func baryVec3(a, b, c mgl32.Vec3, w0, w1, w2 float32) mgl32.Vec3 {
	return a.Mul(w0).Add(b.Mul(w1)).Add(c.Mul(w2))
}

func baryVec2(a, b, c mgl32.Vec2, w0, w1, w2 float32) mgl32.Vec2 {
	return a.Mul(w0).Add(b.Mul(w1)).Add(c.Mul(w2))
}

func min3(a, b, c float32) float32 {
	return minf(minf(a, b), c)
}

func max3(a, b, c float32) float32 {
	return maxf(maxf(a, b), c)
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func cos32(v float32) float32 {
	return float32(math.Cos(float64(v)))
}

func floor32(v float32) float32 {
	return float32(math.Floor(float64(v)))
}

func ceil32(v float32) float32 {
	return float32(math.Ceil(float64(v)))
}
