package lightbake

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultLayoutCellSize is the square texel footprint reserved per face by
// the fallback layout.
const DefaultLayoutCellSize = 8

// LayoutAtlas writes an atlas-UV channel for meshes that have none
// authored. It is a deliberately simple packer: every face gets its own
// square cell in a power-of-two grid shared by all the given meshes, with a
// half-texel inset so sampling at a cell border never reads the neighbor.
//
// Vertices are de-indexed first (three unique vertices per face), since a
// vertex shared between faces cannot occupy two atlas locations.
//
// Returns *AtlasSizeError when the grid cannot fit the configured atlas
// resolution; the error carries the smallest square size that would fit.
func LayoutAtlas(meshes []*MeshData, atlasWidth, atlasHeight, cellSize int) error {
	if cellSize <= 0 {
		cellSize = DefaultLayoutCellSize
	}

	totalFaces := 0
	for _, m := range meshes {
		totalFaces += m.FaceCount()
	}
	if totalFaces == 0 {
		return nil
	}

	cellsPerRow := 1
	for cellsPerRow*cellsPerRow < totalFaces {
		cellsPerRow *= 2
	}
	required := cellsPerRow * cellSize
	requiredPow2 := 1
	for requiredPow2 < required {
		requiredPow2 *= 2
	}

	size := atlasWidth
	if atlasHeight < size {
		size = atlasHeight
	}
	if requiredPow2 > size {
		return &AtlasSizeError{Width: atlasWidth, Height: atlasHeight, RequiredSize: requiredPow2}
	}

	// The grid spans requiredPow2 texels of the (possibly larger) atlas.
	cellUV := float32(cellSize) / float32(size)
	inset := 0.5 / float32(size)

	cell := 0
	for _, m := range meshes {
		deindex(m)
		faceCount := m.FaceCount()
		m.AtlasUVs = make([]mgl32.Vec2, len(m.Positions))

		for f := 0; f < faceCount; f++ {
			cx := cell % cellsPerRow
			cy := cell / cellsPerRow
			cell++

			u0 := float32(cx)*cellUV + inset
			v0 := float32(cy)*cellUV + inset
			u1 := float32(cx+1)*cellUV - inset
			v1 := float32(cy+1)*cellUV - inset

			i0, i1, i2 := m.faceIndices(f)
			m.AtlasUVs[i0] = mgl32.Vec2{u0, v0}
			m.AtlasUVs[i1] = mgl32.Vec2{u1, v0}
			m.AtlasUVs[i2] = mgl32.Vec2{u0, v1}
		}
	}
	return nil
}

// deindex rebuilds the mesh with three unique vertices per face.
func deindex(m *MeshData) {
	n := len(m.Indices)
	positions := make([]mgl32.Vec3, n)
	// A mesh without a normal channel stays without one, so registration
	// still rejects it instead of baking with fabricated zero normals.
	var normals []mgl32.Vec3
	if len(m.Normals) == len(m.Positions) {
		normals = make([]mgl32.Vec3, n)
	}
	var uvs []mgl32.Vec2
	if len(m.UVs) == len(m.Positions) {
		uvs = make([]mgl32.Vec2, n)
	}
	indices := make([]uint32, n)

	for i, idx := range m.Indices {
		positions[i] = m.Positions[idx]
		if normals != nil {
			normals[i] = m.Normals[idx]
		}
		if uvs != nil {
			uvs[i] = m.UVs[idx]
		}
		indices[i] = uint32(i)
	}

	m.Positions = positions
	if normals != nil {
		m.Normals = normals
	}
	if uvs != nil {
		m.UVs = uvs
	}
	m.Indices = indices
}
