package lightbake

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ProbeView is one of the five hemicube views: a 90-degree square frustum
// at Eye looking along Dir with the given up vector.
type ProbeView struct {
	Eye mgl32.Vec3
	Dir mgl32.Vec3
	Up  mgl32.Vec3
}

// Device is the render-to-texture collaborator the bake core draws probe
// views with. The view is rendered and read back synchronously into dst;
// dst is owned by the caller and overwritten in full.
type Device interface {
	RenderView(scene *LightScene, view ProbeView, dst *FloatImage) error
}

const (
	probeNear       = 0.01
	probeFar        = 1000.0
	shadowMapSize   = 256
	shadowDepthBias = 2e-3
)

// SoftwareDevice renders light-scene views with the in-package rasterizer:
// Lambert direct lighting with per-light shadow maps, plus the emissive
// and fed-back lightmap terms. It is deterministic, which the bake's
// idempotence guarantee leans on.
//
// Shadow maps are cached per light scene; passing a different scene
// pointer rebuilds them. Not safe for concurrent use, matching the
// single-active-job scheduling model.
type SoftwareDevice struct {
	log Logger

	lastScene *LightScene
	shadows   []lightShadow
}

type lightShadow struct {
	viewProj mgl32.Mat4
	depth    []float32
	size     int
}

func NewSoftwareDevice(logger Logger) *SoftwareDevice {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &SoftwareDevice{log: logger}
}

func (d *SoftwareDevice) RenderView(scene *LightScene, view ProbeView, dst *FloatImage) error {
	d.ensureShadows(scene)

	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, probeNear, probeFar)
	lookAt := mgl32.LookAtV(view.Eye, view.Eye.Add(view.Dir), view.Up)
	viewProj := proj.Mul4(lookAt)

	dst.Clear()
	raster := newRasterizer(dst, true)

	for i := range scene.Items {
		item := &scene.Items[i]
		d.drawItem(raster, scene, item, viewProj)
	}
	dst.MarkDirty()
	return nil
}

func (d *SoftwareDevice) drawItem(raster *rasterizer, scene *LightScene, item *LightSceneItem, viewProj mgl32.Mat4) {
	mesh := item.Mesh
	nm := normalMatrix(item.Model)

	shade := func(frag fragment) (mgl32.Vec4, bool) {
		rgb := d.shadeFragment(scene, item, frag)
		return mgl32.Vec4{rgb.X(), rgb.Y(), rgb.Z(), 1}, true
	}

	for f := 0; f < mesh.FaceCount(); f++ {
		i0, i1, i2 := mesh.faceIndices(f)
		var rv [3]rasterVertex
		for c, idx := range [3]uint32{i0, i1, i2} {
			world := mgl32.TransformCoordinate(mesh.Positions[idx], item.Model)
			rv[c] = rasterVertex{
				clip: viewProj.Mul4x1(world.Vec4(1)),
				v: varyings{
					world:  world,
					normal: nm.Mul3x1(mesh.Normals[idx]),
				},
			}
			if len(mesh.UVs) == len(mesh.Positions) {
				rv[c].v.uv = mesh.UVs[idx]
			}
			if len(mesh.AtlasUVs) == len(mesh.Positions) {
				rv[c].v.atlasUV = mesh.AtlasUVs[idx]
			}
		}
		raster.drawTriangle(rv[0], rv[1], rv[2], shade)
	}
}

// shadeFragment evaluates the diffuse radiance leaving the surface toward
// the probe: albedo x (direct + fed-back bounce) + emissive. Specular
// terms are out of scope for the baked result.
func (d *SoftwareDevice) shadeFragment(scene *LightScene, item *LightSceneItem, frag fragment) mgl32.Vec3 {
	normal := frag.v.normal
	if normal.Len() > 0 {
		normal = normal.Normalize()
	}

	albedo := item.Albedo
	if item.AlbedoTexture != nil {
		albedo = mulVec3(albedo, item.AlbedoTexture.Sample(frag.v.uv.X(), frag.v.uv.Y()))
	}

	var incoming mgl32.Vec3
	for li := range scene.Lights {
		incoming = incoming.Add(d.lightTerm(li, &scene.Lights[li], frag.v.world, normal))
	}
	if item.Lightmap != nil {
		incoming = incoming.Add(item.Lightmap.SampleNearest(frag.v.atlasUV.X(), frag.v.atlasUV.Y()))
	}

	rgb := mulVec3(albedo, incoming)

	if item.EmissiveIntensity > 0 {
		emissive := item.Emissive
		if item.EmissiveTexture != nil {
			emissive = mulVec3(emissive, item.EmissiveTexture.Sample(frag.v.uv.X(), frag.v.uv.Y()))
		}
		rgb = rgb.Add(emissive.Mul(item.EmissiveIntensity))
	}
	return rgb
}

func (d *SoftwareDevice) lightTerm(index int, light *Light, world, normal mgl32.Vec3) mgl32.Vec3 {
	var toLight mgl32.Vec3
	attenuation := float32(1)

	switch light.Kind {
	case LightKindDirectional:
		toLight = light.Direction.Normalize().Mul(-1)
	case LightKindSpot:
		offset := light.Position.Sub(world)
		dist2 := offset.Dot(offset)
		if dist2 < 1e-8 {
			return mgl32.Vec3{}
		}
		toLight = offset.Normalize()
		attenuation = 1 / maxf(dist2, 1)

		// Hard cone edge.
		cosCone := cos32(mgl32.DegToRad(light.ConeAngle) / 2)
		if light.Direction.Normalize().Dot(toLight.Mul(-1)) < cosCone {
			return mgl32.Vec3{}
		}
	default:
		return mgl32.Vec3{}
	}

	cos := normal.Dot(toLight)
	if cos <= 0 {
		return mgl32.Vec3{}
	}
	vis := d.shadowVisibility(index, world)
	if vis == 0 {
		return mgl32.Vec3{}
	}
	return light.Color.Mul(light.Intensity * cos * attenuation * vis)
}

func (d *SoftwareDevice) ensureShadows(scene *LightScene) {
	if scene == d.lastScene {
		return
	}
	d.lastScene = scene
	d.shadows = d.shadows[:0]

	for i := range scene.Lights {
		light := &scene.Lights[i]
		sm := lightShadow{
			viewProj: light.viewProjection(),
			size:     shadowMapSize,
		}
		raster := newDepthRasterizer(sm.size, sm.size)
		for ii := range scene.Items {
			item := &scene.Items[ii]
			mesh := item.Mesh
			for f := 0; f < mesh.FaceCount(); f++ {
				i0, i1, i2 := mesh.faceIndices(f)
				var rv [3]rasterVertex
				for c, idx := range [3]uint32{i0, i1, i2} {
					world := mgl32.TransformCoordinate(mesh.Positions[idx], item.Model)
					rv[c] = rasterVertex{clip: sm.viewProj.Mul4x1(world.Vec4(1))}
				}
				raster.drawTriangle(rv[0], rv[1], rv[2], nil)
			}
		}
		sm.depth = raster.depth
		d.shadows = append(d.shadows, sm)
		d.log.Debugf("shadow map %d built (%dx%d)", i, sm.size, sm.size)
	}
}

// shadowVisibility returns 1 when the point sees light index, 0 when the
// depth pass found an occluder in front of it. Points outside the shadow
// frustum count as lit; the cone/frustum tests above already bound spots.
func (d *SoftwareDevice) shadowVisibility(index int, world mgl32.Vec3) float32 {
	if index >= len(d.shadows) {
		return 1
	}
	sm := &d.shadows[index]

	clip := sm.viewProj.Mul4x1(world.Vec4(1))
	w := clip.W()
	if w <= 0 {
		return 1
	}
	ndcX := clip.X() / w
	ndcY := clip.Y() / w
	ndcZ := clip.Z() / w
	if ndcX < -1 || ndcX > 1 || ndcY < -1 || ndcY > 1 || ndcZ < -1 || ndcZ > 1 {
		return 1
	}

	x := clampInt(int((ndcX+1)*0.5*float32(sm.size)), 0, sm.size-1)
	y := clampInt(int((ndcY+1)*0.5*float32(sm.size)), 0, sm.size-1)
	if ndcZ-shadowDepthBias > sm.depth[y*sm.size+x] {
		return 0
	}
	return 1
}

func mulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}
