package lightbake

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultPassCount is the fixed number of bounce passes: direct
	// lighting plus one fed-back bounce.
	DefaultPassCount = 2

	// DefaultTexelBudget caps the texels *examined* per Step call. Empty
	// atlas texels consume budget but no probe work.
	DefaultTexelBudget = 100
)

// Neighbor-fill precedence markers, valid within one pass.
const (
	fillNone     uint8 = 0
	fillDiagonal uint8 = 1
	fillStrong   uint8 = 2
)

// IrradianceRenderer owns the per-pass, per-texel bake state for one
// (Workbench, factor, time) triple. It is driven through the WorkScheduler:
// LightScene is the job's scene provider, Step its work function. Progress
// lives entirely in the renderer; a Step call processes one bounded texel
// slice and returns, making the bake resumable across ticks with no hidden
// call stack.
type IrradianceRenderer struct {
	workbench *Workbench
	factor    string
	time      float32

	passCount int
	budget    int
	probe     *ProbeSampler
	log       Logger

	pass     int // 1-based, 0 before the first pass-setup
	cursor   int // next texel, row-major
	output   *FloatImage
	previous *FloatImage
	scene    *LightScene
	filled   []uint8
	done     bool
	failed   error
}

func NewIrradianceRenderer(wb *Workbench, factor string, time float32, probe *ProbeSampler, logger Logger) *IrradianceRenderer {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &IrradianceRenderer{
		workbench: wb,
		factor:    factor,
		time:      time,
		passCount: DefaultPassCount,
		budget:    DefaultTexelBudget,
		probe:     probe,
		log:       logger,
	}
}

func (r *IrradianceRenderer) Factor() string { return r.factor }

func (r *IrradianceRenderer) Pass() int { return r.pass }

// PassTexelCounter reports how many texels of the current pass have been
// examined; it strictly increases tick over tick until it reaches
// atlasWidth*atlasHeight.
func (r *IrradianceRenderer) PassTexelCounter() int { return r.cursor }

// Output is the renderer's accumulated layer texture. Valid (and owned
// exclusively by this renderer) from the first pass-setup on; final once
// OutputIsComplete reports true.
func (r *IrradianceRenderer) Output() *FloatImage { return r.output }

func (r *IrradianceRenderer) OutputIsComplete() bool { return r.done }

// Err returns the fatal error that aborted the bake, if any.
func (r *IrradianceRenderer) Err() error { return r.failed }

// LightScene returns the current pass's light scene, building pass state on
// demand. Nil once the renderer is done or aborted; the scheduler skips
// the job then.
func (r *IrradianceRenderer) LightScene() *LightScene {
	if r.done || r.failed != nil {
		return nil
	}
	if r.scene == nil {
		r.setupPass()
	}
	return r.scene
}

// setupPass advances to the next pass: allocates the output buffer on the
// first pass (checkerboard-primed for the base layer so un-sampled regions
// stand out during development) and snapshots the pass's light scene.
func (r *IrradianceRenderer) setupPass() {
	atlas := r.workbench.Atlas
	r.pass++
	r.cursor = 0

	if r.pass == 1 {
		r.output = NewFloatImage(atlas.Width, atlas.Height)
		if r.factor == "" {
			r.output.FillCheckerboard(8, 0.1, 0.2)
		}
		r.filled = make([]uint8, atlas.Width*atlas.Height)
	} else {
		for i := range r.filled {
			r.filled[i] = fillNone
		}
	}

	r.scene = newLightScene(r.workbench, r.factor, r.pass, r.previous, r.time)
	r.log.Debugf("factor %q: pass %d/%d set up (%d lights)", r.factor, r.pass, r.passCount, len(r.scene.Lights))
}

// Step is the scheduler work function: sweep up to the texel budget in
// row-major order, probe every populated texel, store results and close UV
// seams, then flush the probe batch. A nil scene is the expected startup
// race: no-op, retried next tick.
func (r *IrradianceRenderer) Step(dev Device, scene *LightScene) error {
	if scene == nil || r.done {
		return nil
	}
	if r.failed != nil {
		return r.failed
	}

	atlas := r.workbench.Atlas
	total := atlas.Width * atlas.Height

	examined := 0
	for examined < r.budget && r.cursor < total {
		x := r.cursor % atlas.Width
		y := r.cursor / atlas.Width
		r.cursor++
		examined++

		uLocal, vLocal, encoded := atlas.texel(x, y)
		itemIndex, faceIndex, empty := decodeFaceId(encoded)
		if empty {
			continue
		}
		if itemIndex < 0 || faceIndex < 0 ||
			itemIndex >= len(atlas.Items) || faceIndex >= atlas.Items[itemIndex].FaceCount {
			r.failed = fmt.Errorf("%w: texel (%d,%d) decodes to item %d face %d (items %d)",
				ErrAtlasCorrupt, x, y, itemIndex, faceIndex, len(atlas.Items))
			r.scene = nil
			return r.failed
		}

		mapItem := atlas.Items[itemIndex]
		model := mapItem.Item.modelMatrix(r.time)
		pos, normal, tanU, tanV := mapItem.surfaceFrame(faceIndex, uLocal, vLocal, model)

		tx, ty := x, y
		r.probe.Queue(ProbeRequest{
			Point:  pos,
			Normal: normal,
			TanU:   tanU,
			TanV:   tanV,
			Consume: func(radiance mgl32.Vec3) {
				r.storeTexel(tx, ty, radiance)
			},
		})
	}

	if err := r.probe.Flush(dev, scene); err != nil {
		r.failed = err
		r.scene = nil
		return err
	}

	if r.cursor >= total {
		r.finishPass()
	}
	return nil
}

// storeTexel writes a probed radiance into the output buffer and
// propagates it into empty neighboring atlas positions so sampling near a
// chart edge never reads garbage. Cardinal neighbors always take the
// value; a diagonal neighbor only takes it when nothing filled it earlier
// in this pass.
func (r *IrradianceRenderer) storeTexel(x, y int, radiance mgl32.Vec3) {
	atlas := r.workbench.Atlas

	if r.pass > 1 {
		r.output.AddRGB(x, y, radiance)
	} else {
		r.output.Set(x, y, radiance.X(), radiance.Y(), radiance.Z(), 1)
	}
	r.filled[y*atlas.Width+x] = fillStrong

	// The neighbors mirror the texel's accumulated value, keeping seams
	// consistent across passes.
	cur := r.output.RGB(x, y)

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= atlas.Width || ny < 0 || ny >= atlas.Height {
				continue
			}
			if !atlas.emptyAt(nx, ny) {
				continue
			}

			ni := ny*atlas.Width + nx
			diagonal := dx != 0 && dy != 0
			if diagonal {
				if r.filled[ni] != fillNone {
					continue
				}
				r.filled[ni] = fillDiagonal
			} else {
				r.filled[ni] = fillStrong
			}
			r.output.Set(nx, ny, cur.X(), cur.Y(), cur.Z(), 1)
		}
	}
	r.output.MarkDirty()
}

// finishPass rolls the just-completed pass's result into the feedback
// input and either sets up for the next bounce pass (lazily, on the next
// LightScene call) or reports completion.
func (r *IrradianceRenderer) finishPass() {
	r.log.Infof("factor %q: pass %d/%d complete", r.factor, r.pass, r.passCount)
	r.scene = nil

	if r.pass < r.passCount {
		snapshot := NewFloatImage(r.output.Width, r.output.Height)
		copy(snapshot.Pix, r.output.Pix)
		r.previous = snapshot
		return
	}
	r.done = true
}
