package lightbake

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestStage_RejectsIncompleteMeshes(t *testing.T) {
	stage := NewWorkbenchStage(nil)

	quad := func() *MeshData { return NewQuadMesh(1, mgl32.Vec2{}, mgl32.Vec2{1, 1}) }

	noIndices := quad()
	noIndices.Indices = nil
	if _, err := stage.RegisterItem(SceneItem{Mesh: noIndices}); !errors.Is(err, ErrInvalidMesh) {
		t.Errorf("Expected ErrInvalidMesh for a mesh without indices, got %v", err)
	}

	noNormals := quad()
	noNormals.Normals = nil
	if _, err := stage.RegisterItem(SceneItem{Mesh: noNormals}); !errors.Is(err, ErrInvalidMesh) {
		t.Errorf("Expected ErrInvalidMesh for a mesh without normals, got %v", err)
	}

	noAtlas := quad()
	noAtlas.AtlasUVs = nil
	if _, err := stage.RegisterItem(SceneItem{Mesh: noAtlas}); !errors.Is(err, ErrInvalidMesh) {
		t.Errorf("Expected ErrInvalidMesh for a mesh without atlas UVs, got %v", err)
	}

	badIndex := quad()
	badIndex.Indices[0] = 99
	if _, err := stage.RegisterItem(SceneItem{Mesh: badIndex}); !errors.Is(err, ErrInvalidMesh) {
		t.Errorf("Expected ErrInvalidMesh for an out-of-range index, got %v", err)
	}

	if stage.ItemCount() != 0 {
		t.Errorf("Expected no items staged after rejections, got %d", stage.ItemCount())
	}
}

func TestStage_RejectsBadLights(t *testing.T) {
	stage := NewWorkbenchStage(nil)

	cases := []Light{
		{Kind: LightKind(7), Direction: mgl32.Vec3{0, -1, 0}},
		{Kind: LightKindDirectional},
		{Kind: LightKindSpot, Direction: mgl32.Vec3{0, -1, 0}, ConeAngle: 0},
		{Kind: LightKindSpot, Direction: mgl32.Vec3{0, -1, 0}, ConeAngle: 180},
	}
	for i, l := range cases {
		if _, err := stage.RegisterLight(l); !errors.Is(err, ErrUnsupportedLight) {
			t.Errorf("case %d: expected ErrUnsupportedLight, got %v", i, err)
		}
	}
	if stage.LightCount() != 0 {
		t.Errorf("Expected no lights staged after rejections, got %d", stage.LightCount())
	}
}

func TestStage_SnapshotIsolation(t *testing.T) {
	stage := NewWorkbenchStage(nil)

	handle, err := stage.RegisterItem(SceneItem{
		Mesh:          NewQuadMesh(1, mgl32.Vec2{0.1, 0.1}, mgl32.Vec2{0.9, 0.9}),
		NeedsLightmap: true,
		Factor:        "lamps",
	})
	if err != nil {
		t.Fatalf("RegisterItem failed: %v", err)
	}
	if _, err := stage.RegisterLight(Light{
		Kind:      LightKindDirectional,
		Direction: mgl32.Vec3{0, -1, 0},
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
	}); err != nil {
		t.Fatalf("RegisterLight failed: %v", err)
	}

	first, err := stage.Snapshot(16, 16)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	stage.UnregisterItem(handle)
	second, err := stage.Snapshot(16, 16)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(first.Items) != 1 {
		t.Errorf("Expected the first snapshot to keep its item, got %d", len(first.Items))
	}
	if len(second.Items) != 0 {
		t.Errorf("Expected the second snapshot to drop the item, got %d", len(second.Items))
	}
	if second.Id <= first.Id {
		t.Errorf("Expected workbench ids to increase, got %d then %d", first.Id, second.Id)
	}

	factors := first.Factors()
	if len(factors) != 1 || factors[0] != "lamps" {
		t.Errorf("Expected factors [lamps], got %v", factors)
	}
}

func TestStage_ZeroTransformBecomesIdentity(t *testing.T) {
	stage := NewWorkbenchStage(nil)
	_, err := stage.RegisterItem(SceneItem{
		Mesh:          NewQuadMesh(1, mgl32.Vec2{}, mgl32.Vec2{1, 1}),
		NeedsLightmap: true,
	})
	if err != nil {
		t.Fatalf("RegisterItem failed: %v", err)
	}

	wb, err := stage.Snapshot(8, 8)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if wb.Items[0].Transform != mgl32.Ident4() {
		t.Errorf("Expected a zero transform to default to identity, got %v", wb.Items[0].Transform)
	}
}
