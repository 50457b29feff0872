package lightbake

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// SceneItem is one registered surface: geometry, a material snapshot, and
// the bake-relevant flags. Factor "" is the base layer. The mesh buffers
// are shared by reference and treated as read-only once registered.
type SceneItem struct {
	Mesh          *MeshData
	Material      Material
	Transform     mgl32.Mat4
	NeedsLightmap bool
	Factor        string
	Clip          *AnimationClip
	Time          float32
}

// modelMatrix returns the world transform of the item at the given pose
// time. Items without a clip ignore the time; Time acts as a per-item
// phase offset into the clip.
func (it *SceneItem) modelMatrix(time float32) mgl32.Mat4 {
	if it.Clip == nil {
		return it.Transform
	}
	return it.Transform.Mul4(it.Clip.Sample(time + it.Time))
}

// Workbench is an immutable snapshot of everything a bake needs: the
// registered items and lights frozen at snapshot time, plus the atlas
// lookup computed once for this snapshot. A new Workbench supersedes all
// bake state derived from earlier ones; its id is strictly increasing per
// stage.
type Workbench struct {
	Id     uint64
	Items  []SceneItem
	Lights []Light
	Atlas  *AtlasMap
}

// Factors returns the distinct non-base factor tags across items and
// lights, sorted for deterministic renderer creation order.
func (wb *Workbench) Factors() []string {
	seen := map[string]bool{}
	for i := range wb.Items {
		if f := wb.Items[i].Factor; f != "" {
			seen[f] = true
		}
	}
	for i := range wb.Lights {
		if f := wb.Lights[i].Factor; f != "" {
			seen[f] = true
		}
	}
	factors := make([]string, 0, len(seen))
	for f := range seen {
		factors = append(factors, f)
	}
	sort.Strings(factors)
	return factors
}

// lightmapItems returns pointers to the snapshot items participating in the
// atlas, in item order.
func (wb *Workbench) lightmapItems() []*SceneItem {
	var items []*SceneItem
	for i := range wb.Items {
		if wb.Items[i].NeedsLightmap {
			items = append(items, &wb.Items[i])
		}
	}
	return items
}
