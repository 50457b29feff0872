package lightbake

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaxItemFaces fixes the face-id encoding stride. Encoded ids are
// itemIndex*MaxItemFaces + faceIndex + 1; zero marks an empty texel. Items
// with more faces are rejected at registration.
const MaxItemFaces = 1000

// AtlasFaceVertex is one corner of a face in the auxiliary atlas geometry:
// the face-local coordinate that the lookup pass rasterizes, the original
// attributes it interpolates from, and the precomputed tangent frame.
type AtlasFaceVertex struct {
	Local     mgl32.Vec2
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	UV        mgl32.Vec2
	AtlasUV   mgl32.Vec2
	Tangent   mgl32.Vec3
	Bitangent mgl32.Vec3
}

type AtlasFace [3]AtlasFaceVertex

// AtlasMapItem is the per-item slice of the atlas: its auxiliary face
// buffer plus a back-reference to the original geometry and scene item.
type AtlasMapItem struct {
	FaceCount int
	Faces     []AtlasFace
	Mesh      *MeshData
	Item      *SceneItem
}

// AtlasMap is the texel-to-surface-point lookup produced once per
// Workbench. Data holds one RGBA float quad per texel: (u-local, v-local,
// encoded face id, unused). After BuildAtlasMap returns, the map is
// read-only and may be consumed by any number of renderers.
type AtlasMap struct {
	Width  int
	Height int
	Data   []float32
	Items  []*AtlasMapItem
}

func encodeFaceId(itemIndex, faceIndex int) float32 {
	return float32(itemIndex*MaxItemFaces + faceIndex + 1)
}

// decodeFaceId splits an encoded lookup value. empty is true for the exact
// zero encoding. Range validation against the item table is the caller's
// job (it needs the error context).
func decodeFaceId(v float32) (itemIndex, faceIndex int, empty bool) {
	id := int(v + 0.5)
	if id == 0 {
		return 0, 0, true
	}
	id--
	return id / MaxItemFaces, id % MaxItemFaces, false
}

// texel returns the lookup quad at (x, y).
func (am *AtlasMap) texel(x, y int) (uLocal, vLocal, encoded float32) {
	i := (y*am.Width + x) * 4
	return am.Data[i], am.Data[i+1], am.Data[i+2]
}

// emptyAt reports whether the texel holds the zero (unused) encoding.
func (am *AtlasMap) emptyAt(x, y int) bool {
	_, _, encoded := am.texel(x, y)
	_, _, empty := decodeFaceId(encoded)
	return empty
}

// LookupImage exposes the raw lookup as a FloatImage for debugging.
func (am *AtlasMap) LookupImage() *FloatImage {
	return &FloatImage{Width: am.Width, Height: am.Height, Pix: am.Data}
}

// BuildAtlasMap rasterizes every participating face into atlas space using
// the atlas-UV channel as the render-target position. The fragment output
// is just the interpolated face-local coordinate and the (constant per
// face) encoded id. The float target is kept as the lookup; the mapper
// never rasterizes again for this Workbench.
func BuildAtlasMap(width, height int, items []*SceneItem) (*AtlasMap, error) {
	am := &AtlasMap{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height*4),
	}

	for _, item := range items {
		mapItem, err := buildAtlasItem(item)
		if err != nil {
			return nil, err
		}
		am.Items = append(am.Items, mapItem)
	}

	target := &FloatImage{Width: width, Height: height, Pix: am.Data}
	raster := newRasterizer(target, false)

	for itemIndex, mapItem := range am.Items {
		for faceIndex, face := range mapItem.Faces {
			encoded := encodeFaceId(itemIndex, faceIndex)
			var rv [3]rasterVertex
			for c := 0; c < 3; c++ {
				uv := face[c].AtlasUV
				rv[c] = rasterVertex{
					clip: mgl32.Vec4{uv.X()*2 - 1, uv.Y()*2 - 1, 0, 1},
					v: varyings{
						face: mgl32.Vec3{face[c].Local.X(), face[c].Local.Y(), encoded},
					},
				}
			}
			raster.drawTriangle(rv[0], rv[1], rv[2], func(frag fragment) (mgl32.Vec4, bool) {
				return mgl32.Vec4{frag.v.face.X(), frag.v.face.Y(), encoded, 0}, true
			})
		}
	}

	return am, nil
}

func buildAtlasItem(item *SceneItem) (*AtlasMapItem, error) {
	mesh := item.Mesh
	faceCount := mesh.FaceCount()

	mapItem := &AtlasMapItem{
		FaceCount: faceCount,
		Faces:     make([]AtlasFace, faceCount),
		Mesh:      mesh,
		Item:      item,
	}

	// Face-local coordinates: vertex slots carry (0,0), (1,0), (0,1), so an
	// interpolated (u,v) is directly the barycentric weight of corners 1
	// and 2.
	locals := [3]mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}}

	for f := 0; f < faceCount; f++ {
		i0, i1, i2 := mesh.faceIndices(f)
		tangent, bitangent := mesh.faceTangentBasis(f)
		for c, idx := range [3]uint32{i0, i1, i2} {
			v := AtlasFaceVertex{
				Local:     locals[c],
				Position:  mesh.Positions[idx],
				Normal:    mesh.Normals[idx],
				AtlasUV:   mesh.AtlasUVs[idx],
				Tangent:   tangent,
				Bitangent: bitangent,
			}
			if len(mesh.UVs) == len(mesh.Positions) {
				v.UV = mesh.UVs[idx]
			}
			mapItem.Faces[f][c] = v
		}
	}
	return mapItem, nil
}

// surfaceFrame interpolates the 3-D sample frame for face-local (u, v):
// world-space position, normal and the two tangent directions, under the
// given model matrix.
func (it *AtlasMapItem) surfaceFrame(face int, u, v float32, model mgl32.Mat4) (pos, normal, tanU, tanV mgl32.Vec3) {
	fv := it.Faces[face]
	w0 := 1 - u - v

	localPos := fv[0].Position.Mul(w0).Add(fv[1].Position.Mul(u)).Add(fv[2].Position.Mul(v))
	localNrm := fv[0].Normal.Mul(w0).Add(fv[1].Normal.Mul(u)).Add(fv[2].Normal.Mul(v))

	nm := normalMatrix(model)
	pos = mgl32.TransformCoordinate(localPos, model)
	normal = nm.Mul3x1(localNrm)
	if normal.Len() > 0 {
		normal = normal.Normalize()
	}

	tanU = nm.Mul3x1(fv[0].Tangent)
	// Re-orthogonalize against the interpolated normal.
	tanU = tanU.Sub(normal.Mul(normal.Dot(tanU)))
	if tanU.Dot(tanU) < 1e-12 {
		tanU = perpendicular(normal)
	}
	tanU = tanU.Normalize()
	tanV = normal.Cross(tanU)
	return pos, normal, tanU, tanV
}

func normalMatrix(model mgl32.Mat4) mgl32.Mat3 {
	return model.Inv().Transpose().Mat3()
}
