package lightbake

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultProbeResolution is the square probe render-target size. Small on
// purpose: five renders plus readback happen per sampled texel.
const DefaultProbeResolution = 16

// probeOffset lifts the probe eye off its surface along the normal so the
// probe's own face does not occlude the views.
const probeOffset = 1e-3

// ProbeRequest is one queued texel sample: the surface frame to probe and
// the closure that consumes the averaged radiance once the views for this
// texel have been rendered and read back.
type ProbeRequest struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3
	TanU   mgl32.Vec3
	TanV   mgl32.Vec3

	Consume func(radiance mgl32.Vec3)
}

// ProbeSampler estimates hemisphere-integrated incoming radiance at a
// surface point by rendering five small views (one along the normal
// catching the cosine-weighted cap, four sideways along the tangents
// catching the grazing band) and averaging their pixels with a
// precomputed solid-angle weight table.
//
// Requests are queued and deferred to Flush so the per-call render+readback
// overhead is paid once per batch. There is a single render target and no
// double buffering: each consume closure runs, and must finish, before the
// next texel's views overwrite the target.
type ProbeSampler struct {
	resolution int
	weights    []float32
	target     *FloatImage
	queue      []ProbeRequest
	log        Logger
}

func NewProbeSampler(resolution int, logger Logger) *ProbeSampler {
	if resolution <= 0 {
		resolution = DefaultProbeResolution
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &ProbeSampler{
		resolution: resolution,
		weights:    probeWeights(resolution),
		target:     NewFloatImage(resolution, resolution),
		log:        logger,
	}
}

// probeWeights precomputes the per-pixel scalar weights, a function of the
// pixel's offset from view center: w = 1/(1+u^2+v^2)^2, the differential
// solid angle of a unit-distance image plane patch projected onto the
// hemisphere. Computed once, reused by every texel of every pass.
func probeWeights(resolution int) []float32 {
	weights := make([]float32, resolution*resolution)
	for y := 0; y < resolution; y++ {
		for x := 0; x < resolution; x++ {
			u := (float32(x)+0.5)/float32(resolution)*2 - 1
			v := (float32(y)+0.5)/float32(resolution)*2 - 1
			d := 1 + u*u + v*v
			weights[y*resolution+x] = 1 / (d * d)
		}
	}
	return weights
}

func (p *ProbeSampler) Resolution() int {
	return p.resolution
}

func (p *ProbeSampler) Queue(req ProbeRequest) {
	p.queue = append(p.queue, req)
}

func (p *ProbeSampler) Pending() int {
	return len(p.queue)
}

// Flush renders the five views for every queued request against the given
// light scene and invokes each request's consume closure with its averaged
// radiance. The queue is drained even when a render fails; the first error
// is returned.
func (p *ProbeSampler) Flush(dev Device, scene *LightScene) error {
	var firstErr error
	for i := range p.queue {
		radiance, err := p.sampleOne(dev, scene, &p.queue[i])
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if p.queue[i].Consume != nil {
			p.queue[i].Consume(radiance)
		}
	}
	p.queue = p.queue[:0]
	return firstErr
}

func (p *ProbeSampler) sampleOne(dev Device, scene *LightScene, req *ProbeRequest) (mgl32.Vec3, error) {
	eye := req.Point.Add(req.Normal.Mul(probeOffset))

	var sum mgl32.Vec3
	var weightSum float32

	// Center view along the normal, up aligned to the first tangent:
	// the full pixel set participates.
	if err := dev.RenderView(scene, ProbeView{Eye: eye, Dir: req.Normal, Up: req.TanU}, p.target); err != nil {
		return mgl32.Vec3{}, err
	}
	sum, weightSum = p.accumulate(sum, weightSum, 0, p.resolution)

	// Four side views along +/- each tangent, up aligned to the normal:
	// only the half nearer the horizon participates. With screen y growing
	// toward "up", that is the upper half of each side image (elevations
	// between the horizon and the cap's 45-degree rim).
	for _, dir := range [4]mgl32.Vec3{req.TanU, req.TanU.Mul(-1), req.TanV, req.TanV.Mul(-1)} {
		if err := dev.RenderView(scene, ProbeView{Eye: eye, Dir: dir, Up: req.Normal}, p.target); err != nil {
			return mgl32.Vec3{}, err
		}
		sum, weightSum = p.accumulate(sum, weightSum, p.resolution/2, p.resolution)
	}

	if weightSum == 0 {
		return mgl32.Vec3{}, nil
	}
	return sum.Mul(1 / weightSum), nil
}

func (p *ProbeSampler) accumulate(sum mgl32.Vec3, weightSum float32, yMin, yMax int) (mgl32.Vec3, float32) {
	for y := yMin; y < yMax; y++ {
		for x := 0; x < p.resolution; x++ {
			w := p.weights[y*p.resolution+x]
			sum = sum.Add(p.target.RGB(x, y).Mul(w))
			weightSum += w
		}
	}
	return sum, weightSum
}
