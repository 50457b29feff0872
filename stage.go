package lightbake

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type ItemHandle string

type LightHandle string

// WorkbenchStage is the explicit, caller-owned registry of everything that
// participates in a bake. Registration fails fast on precondition
// violations (missing buffers, unsupported light kinds) so bad input never
// reaches a texel sweep. Snapshot freezes the current contents into a
// Workbench; later mutations of the stage do not affect snapshots already
// taken.
type WorkbenchStage struct {
	log Logger

	itemOrder  []ItemHandle
	items      map[ItemHandle]SceneItem
	lightOrder []LightHandle
	lights     map[LightHandle]Light

	nextWorkbenchId uint64
}

func NewWorkbenchStage(logger Logger) *WorkbenchStage {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &WorkbenchStage{
		log:    logger,
		items:  make(map[ItemHandle]SceneItem),
		lights: make(map[LightHandle]Light),
	}
}

// RegisterItem validates and stages a surface. The returned handle
// unregisters it again; teardown order is up to the caller.
func (s *WorkbenchStage) RegisterItem(item SceneItem) (ItemHandle, error) {
	if err := item.Mesh.validate(); err != nil {
		return "", err
	}
	if item.Mesh.FaceCount() > MaxItemFaces {
		return "", fmt.Errorf("%w: %d faces, limit %d", ErrTooManyFaces, item.Mesh.FaceCount(), MaxItemFaces)
	}
	if item.Transform == (mgl32.Mat4{}) {
		item.Transform = mgl32.Ident4()
	}

	handle := ItemHandle(uuid.NewString())
	s.items[handle] = item
	s.itemOrder = append(s.itemOrder, handle)
	s.log.Debugf("staged item %s (%d faces, factor %q)", handle, item.Mesh.FaceCount(), item.Factor)
	return handle, nil
}

func (s *WorkbenchStage) UnregisterItem(handle ItemHandle) {
	if _, ok := s.items[handle]; !ok {
		return
	}
	delete(s.items, handle)
	s.itemOrder = removeHandle(s.itemOrder, handle)
}

// RegisterLight validates and stages a directional or spot light. Any other
// kind is a fatal registration error.
func (s *WorkbenchStage) RegisterLight(light Light) (LightHandle, error) {
	if err := light.validate(); err != nil {
		return "", err
	}

	handle := LightHandle(uuid.NewString())
	s.lights[handle] = light
	s.lightOrder = append(s.lightOrder, handle)
	s.log.Debugf("staged light %s (kind %d, factor %q)", handle, light.Kind, light.Factor)
	return handle, nil
}

func (s *WorkbenchStage) UnregisterLight(handle LightHandle) {
	if _, ok := s.lights[handle]; !ok {
		return
	}
	delete(s.lights, handle)
	s.lightOrder = removeHandle(s.lightOrder, handle)
}

func (s *WorkbenchStage) ItemCount() int {
	return len(s.items)
}

func (s *WorkbenchStage) LightCount() int {
	return len(s.lights)
}

// Snapshot freezes the staged scene into a Workbench and builds its atlas
// lookup. Items and lights appear in registration order.
func (s *WorkbenchStage) Snapshot(atlasWidth, atlasHeight int) (*Workbench, error) {
	s.nextWorkbenchId++
	wb := &Workbench{
		Id:     s.nextWorkbenchId,
		Items:  make([]SceneItem, 0, len(s.itemOrder)),
		Lights: make([]Light, 0, len(s.lightOrder)),
	}
	for _, h := range s.itemOrder {
		wb.Items = append(wb.Items, s.items[h])
	}
	for _, h := range s.lightOrder {
		wb.Lights = append(wb.Lights, s.lights[h])
	}

	atlas, err := BuildAtlasMap(atlasWidth, atlasHeight, wb.lightmapItems())
	if err != nil {
		return nil, err
	}
	wb.Atlas = atlas

	s.log.Infof("workbench %d: %d items, %d lights, atlas %dx%d",
		wb.Id, len(wb.Items), len(wb.Lights), atlasWidth, atlasHeight)
	return wb, nil
}

func removeHandle[H comparable](order []H, handle H) []H {
	for i, h := range order {
		if h == handle {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
