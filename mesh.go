package lightbake

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MeshData is the geometry snapshot the bake core consumes. Faces are
// triangles only; quads must be pre-expanded by the caller with a consistent
// winding. AtlasUVs is the secondary channel placing every vertex at a
// unique, non-overlapping location in [0,1]x[0,1] atlas space. It may be
// authored or produced by LayoutAtlas.
type MeshData struct {
	Indices   []uint32
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	AtlasUVs  []mgl32.Vec2
}

// Material is the snapshot of surface parameters taken at registration.
// Colors are linear RGB. Textures are optional; a nil texture means the
// constant color alone.
type Material struct {
	AlbedoColor       mgl32.Vec3
	AlbedoTexture     *Texture
	EmissiveColor     mgl32.Vec3
	EmissiveTexture   *Texture
	EmissiveIntensity float32
}

func (m *MeshData) FaceCount() int {
	return len(m.Indices) / 3
}

// validate enforces the registration-time preconditions: an index buffer,
// a normal per vertex and an atlas-UV per vertex are required for any mesh
// participating in a bake.
func (m *MeshData) validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil mesh", ErrInvalidMesh)
	}
	if len(m.Indices) == 0 {
		return fmt.Errorf("%w: missing index buffer", ErrInvalidMesh)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidMesh, len(m.Indices))
	}
	if len(m.Positions) == 0 {
		return fmt.Errorf("%w: missing position buffer", ErrInvalidMesh)
	}
	if len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("%w: missing or mismatched normal buffer (%d normals, %d positions)",
			ErrInvalidMesh, len(m.Normals), len(m.Positions))
	}
	if len(m.AtlasUVs) != len(m.Positions) {
		return fmt.Errorf("%w: missing or mismatched atlas-UV buffer (%d atlas UVs, %d positions)",
			ErrInvalidMesh, len(m.AtlasUVs), len(m.Positions))
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidMesh, idx)
		}
	}
	return nil
}

// faceIndices returns the three vertex indices of face f.
func (m *MeshData) faceIndices(f int) (uint32, uint32, uint32) {
	return m.Indices[f*3], m.Indices[f*3+1], m.Indices[f*3+2]
}

// faceTangentBasis computes a per-face tangent/bitangent pair from the
// primary UV channel, Gram-Schmidt orthogonalized against the face normal.
// Falls back to an arbitrary perpendicular frame when the UV area is
// degenerate.
func (m *MeshData) faceTangentBasis(f int) (tangent, bitangent mgl32.Vec3) {
	i0, i1, i2 := m.faceIndices(f)
	p0, p1, p2 := m.Positions[i0], m.Positions[i1], m.Positions[i2]

	n := m.Normals[i0].Add(m.Normals[i1]).Add(m.Normals[i2])
	if n.Len() > 0 {
		n = n.Normalize()
	} else {
		n = p1.Sub(p0).Cross(p2.Sub(p0))
		if n.Len() > 0 {
			n = n.Normalize()
		} else {
			n = mgl32.Vec3{0, 1, 0}
		}
	}

	e1 := p1.Sub(p0)
	e2 := p2.Sub(p0)

	var t mgl32.Vec3
	if len(m.UVs) == len(m.Positions) {
		du1 := m.UVs[i1].X() - m.UVs[i0].X()
		dv1 := m.UVs[i1].Y() - m.UVs[i0].Y()
		du2 := m.UVs[i2].X() - m.UVs[i0].X()
		dv2 := m.UVs[i2].Y() - m.UVs[i0].Y()

		denom := du1*dv2 - du2*dv1
		if denom != 0 {
			r := 1 / denom
			t = e1.Mul(dv2 * r).Sub(e2.Mul(dv1 * r))
		}
	}
	if t.Len() == 0 {
		t = e1
	}

	// T = normalize(T - N*(N.T))
	t = t.Sub(n.Mul(n.Dot(t)))
	if t.Dot(t) < 1e-12 {
		t = perpendicular(n)
	}
	t = t.Normalize()
	b := n.Cross(t)
	return t, b
}

// perpendicular picks any unit vector orthogonal to unit n.
func perpendicular(n mgl32.Vec3) mgl32.Vec3 {
	var axis mgl32.Vec3
	if abs32(n.X()) < 0.9 {
		axis = mgl32.Vec3{1, 0, 0}
	} else {
		axis = mgl32.Vec3{0, 1, 0}
	}
	p := axis.Sub(n.Mul(n.Dot(axis)))
	return p.Normalize()
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// NewQuadMesh builds a unit quad in the XZ plane facing +Y, expanded to two
// triangles, with atlas UVs covering the given sub-rectangle of atlas space.
// Mostly a convenience for tests and demos.
func NewQuadMesh(size float32, atlasMin, atlasMax mgl32.Vec2) *MeshData {
	h := size / 2
	up := mgl32.Vec3{0, 1, 0}
	return &MeshData{
		Positions: []mgl32.Vec3{
			{-h, 0, -h}, {h, 0, -h}, {h, 0, h}, {-h, 0, h},
		},
		Normals: []mgl32.Vec3{up, up, up, up},
		UVs: []mgl32.Vec2{
			{0, 0}, {1, 0}, {1, 1}, {0, 1},
		},
		AtlasUVs: []mgl32.Vec2{
			{atlasMin.X(), atlasMin.Y()},
			{atlasMax.X(), atlasMin.Y()},
			{atlasMax.X(), atlasMax.Y()},
			{atlasMin.X(), atlasMax.Y()},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
