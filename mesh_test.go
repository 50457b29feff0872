package lightbake

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestMesh_FaceTangentBasis(t *testing.T) {
	mesh := NewQuadMesh(2, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1})

	for f := 0; f < mesh.FaceCount(); f++ {
		tangent, bitangent := mesh.faceTangentBasis(f)
		normal := mgl32.Vec3{0, 1, 0}

		if abs32(tangent.Len()-1) > 1e-5 || abs32(bitangent.Len()-1) > 1e-5 {
			t.Fatalf("face %d: tangent frame not unit length: %v %v", f, tangent, bitangent)
		}
		if abs32(tangent.Dot(normal)) > 1e-5 {
			t.Errorf("face %d: tangent %v not orthogonal to the normal", f, tangent)
		}
		if abs32(tangent.Dot(bitangent)) > 1e-5 {
			t.Errorf("face %d: tangent %v and bitangent %v not orthogonal", f, tangent, bitangent)
		}
	}

	// The quad's U axis runs along +X in object space.
	tangent, _ := mesh.faceTangentBasis(0)
	if abs32(abs32(tangent.X())-1) > 1e-4 {
		t.Errorf("Expected the UV-derived tangent along X, got %v", tangent)
	}
}

func TestMesh_TangentFallbackForDegenerateUVs(t *testing.T) {
	mesh := NewQuadMesh(2, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1})
	// Collapse the UV channel; the basis must fall back to geometry.
	for i := range mesh.UVs {
		mesh.UVs[i] = mgl32.Vec2{0.5, 0.5}
	}

	tangent, bitangent := mesh.faceTangentBasis(0)
	if abs32(tangent.Len()-1) > 1e-5 || abs32(bitangent.Len()-1) > 1e-5 {
		t.Errorf("Expected a unit fallback frame, got %v %v", tangent, bitangent)
	}
}

func TestMesh_ValidateCatchesShortBuffers(t *testing.T) {
	mesh := NewQuadMesh(1, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1})
	mesh.Indices = mesh.Indices[:4] // not a multiple of 3
	if err := mesh.validate(); err == nil {
		t.Errorf("Expected validation to fail for a truncated index buffer")
	}

	var nilMesh *MeshData
	if err := nilMesh.validate(); err == nil {
		t.Errorf("Expected validation to fail for a nil mesh")
	}
}
