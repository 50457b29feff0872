package lightbake

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAtlas_FaceIdRoundtrip(t *testing.T) {
	cases := [][2]int{{0, 0}, {0, 999}, {1, 0}, {7, 432}}
	for _, c := range cases {
		item, face, empty := decodeFaceId(encodeFaceId(c[0], c[1]))
		if empty {
			t.Errorf("encode(%d,%d) decoded as empty", c[0], c[1])
		}
		if item != c[0] || face != c[1] {
			t.Errorf("roundtrip (%d,%d) gave (%d,%d)", c[0], c[1], item, face)
		}
	}

	if _, _, empty := decodeFaceId(0); !empty {
		t.Errorf("Expected zero encoding to decode as empty")
	}
}

func TestAtlas_BuildQuad(t *testing.T) {
	item := &SceneItem{
		Mesh:          NewQuadMesh(2, mgl32.Vec2{0.25, 0.25}, mgl32.Vec2{0.75, 0.75}),
		Transform:     mgl32.Ident4(),
		NeedsLightmap: true,
	}

	am, err := BuildAtlasMap(64, 64, []*SceneItem{item})
	if err != nil {
		t.Fatalf("BuildAtlasMap failed: %v", err)
	}
	if len(am.Items) != 1 {
		t.Fatalf("Expected 1 atlas item, got %d", len(am.Items))
	}

	// Every populated texel must decode into range and carry plausible
	// face-local coordinates.
	populated := 0
	for y := 0; y < am.Height; y++ {
		for x := 0; x < am.Width; x++ {
			u, v, encoded := am.texel(x, y)
			itemIndex, faceIndex, empty := decodeFaceId(encoded)
			if empty {
				continue
			}
			populated++
			if itemIndex != 0 {
				t.Fatalf("texel (%d,%d): item index %d out of range", x, y, itemIndex)
			}
			if faceIndex < 0 || faceIndex >= am.Items[0].FaceCount {
				t.Fatalf("texel (%d,%d): face index %d out of range", x, y, faceIndex)
			}
			if u < -0.01 || v < -0.01 || u+v > 1.01 {
				t.Fatalf("texel (%d,%d): face-local (%v,%v) outside the triangle", x, y, u, v)
			}
		}
	}

	// The quad spans half the atlas in each axis: about a quarter of the
	// texels should be populated.
	if populated < 64*64/8 {
		t.Errorf("Expected the quad to populate a substantial region, got %d texels", populated)
	}

	// The chart corners sit at 0.25..0.75; texels outside must be empty.
	if !am.emptyAt(0, 0) {
		t.Errorf("Expected texel (0,0) outside the chart to be empty")
	}
	if !am.emptyAt(63, 63) {
		t.Errorf("Expected texel (63,63) outside the chart to be empty")
	}
	if am.emptyAt(32, 32) {
		t.Errorf("Expected the chart center texel to be populated")
	}
}

func TestAtlas_RejectsOversizedMesh(t *testing.T) {
	mesh := NewQuadMesh(1, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1})
	// Repeat the two faces until the mesh crosses the face limit.
	for mesh.FaceCount() <= MaxItemFaces {
		mesh.Indices = append(mesh.Indices, 0, 1, 2)
	}

	stage := NewWorkbenchStage(nil)
	if _, err := stage.RegisterItem(SceneItem{Mesh: mesh, NeedsLightmap: true}); err == nil {
		t.Fatalf("Expected registration to fail for %d faces", mesh.FaceCount())
	}
}

func TestAtlas_SurfaceFrame(t *testing.T) {
	item := &SceneItem{
		Mesh:          NewQuadMesh(2, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}),
		Transform:     mgl32.Ident4(),
		NeedsLightmap: true,
	}
	am, err := BuildAtlasMap(16, 16, []*SceneItem{item})
	if err != nil {
		t.Fatalf("BuildAtlasMap failed: %v", err)
	}

	model := mgl32.Translate3D(0, 3, 0)
	pos, normal, tanU, tanV := am.Items[0].surfaceFrame(0, 0, 0, model)

	want := mgl32.Vec3{-1, 3, -1} // first quad corner, lifted by the model
	if pos.Sub(want).Len() > 1e-5 {
		t.Errorf("Expected corner position %v, got %v", want, pos)
	}
	if normal.Sub(mgl32.Vec3{0, 1, 0}).Len() > 1e-5 {
		t.Errorf("Expected +Y normal, got %v", normal)
	}
	if abs32(normal.Dot(tanU)) > 1e-5 || abs32(normal.Dot(tanV)) > 1e-5 {
		t.Errorf("Tangent frame not orthogonal to the normal: %v %v", tanU, tanV)
	}
	if abs32(tanU.Len()-1) > 1e-5 || abs32(tanV.Len()-1) > 1e-5 {
		t.Errorf("Tangent frame not unit length: %v %v", tanU, tanV)
	}
}
