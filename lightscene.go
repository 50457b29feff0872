package lightbake

import (
	"github.com/go-gl/mathgl/mgl32"
)

// LightSceneItem is the disposable render clone of a SceneItem inside one
// pass's light scene: pose resolved to a matrix, material flattened, and
// the previous pass's layer output wired in as the lightmap feedback term.
type LightSceneItem struct {
	Mesh              *MeshData
	Model             mgl32.Mat4
	Albedo            mgl32.Vec3
	AlbedoTexture     *Texture
	Emissive          mgl32.Vec3
	EmissiveTexture   *Texture
	EmissiveIntensity float32
	Lightmap          *FloatImage
}

// LightScene is the lighting-only snapshot a renderer's pass draws its
// probe views against. Construction rules, per pass:
//
//   - items tagged with a factor other than the active one keep their
//     geometry (they still occlude) but lose their emissive contribution;
//   - from pass 2 on, every item's lightmap input is the previous pass's
//     output, so each pass adds one more bounce;
//   - lights participate on pass 1 only (later passes pick the direct term
//     up from the fed-back texture, not from the lights again), and only
//     lights of the active factor participate at all.
type LightScene struct {
	WorkbenchId uint64
	Factor      string
	Pass        int
	Items       []LightSceneItem
	Lights      []Light
}

func newLightScene(wb *Workbench, factor string, pass int, previous *FloatImage, time float32) *LightScene {
	scene := &LightScene{
		WorkbenchId: wb.Id,
		Factor:      factor,
		Pass:        pass,
	}

	for i := range wb.Items {
		item := &wb.Items[i]
		clone := LightSceneItem{
			Mesh:              item.Mesh,
			Model:             item.modelMatrix(time),
			Albedo:            item.Material.AlbedoColor,
			AlbedoTexture:     item.Material.AlbedoTexture,
			Emissive:          item.Material.EmissiveColor,
			EmissiveTexture:   item.Material.EmissiveTexture,
			EmissiveIntensity: item.Material.EmissiveIntensity,
		}
		if item.Factor != factor {
			clone.EmissiveIntensity = 0
			clone.Emissive = mgl32.Vec3{}
		}
		if pass > 1 && item.NeedsLightmap {
			clone.Lightmap = previous
		}
		scene.Items = append(scene.Items, clone)
	}

	if pass == 1 {
		for i := range wb.Lights {
			if wb.Lights[i].Factor == factor {
				scene.Lights = append(scene.Lights, wb.Lights[i])
			}
		}
	}
	return scene
}
