package lightbake

// Config carries the knobs of a bake. Zero values fall back to the package
// defaults, so Baker{} style construction with a partially filled Config is
// fine.
type Config struct {
	AtlasWidth      int
	AtlasHeight     int
	ProbeResolution int
	PassCount       int
	TexelBudget     int
	Time            float32
}

func (c Config) withDefaults() Config {
	if c.AtlasWidth == 0 {
		c.AtlasWidth = 128
	}
	if c.AtlasHeight == 0 {
		c.AtlasHeight = 128
	}
	if c.ProbeResolution == 0 {
		c.ProbeResolution = DefaultProbeResolution
	}
	if c.PassCount == 0 {
		c.PassCount = DefaultPassCount
	}
	if c.TexelBudget == 0 {
		c.TexelBudget = DefaultTexelBudget
	}
	return c
}

// Baker wires the whole pipeline together: it snapshots a stage into a
// workbench, spins up one irradiance renderer per factor (the unnamed base
// factor first), registers them all with a work scheduler and feeds the
// finished layers into a compositor. Drive it with Tick until Complete.
type Baker struct {
	cfg       Config
	log       Logger
	device    Device
	scheduler *WorkScheduler
	probe     *ProbeSampler

	workbench  *Workbench
	renderers  []*IrradianceRenderer
	handles    []JobHandle
	compositor *Compositor
}

func NewBaker(cfg Config, device Device, logger Logger) *Baker {
	if logger == nil {
		logger = NewNopLogger()
	}
	cfg = cfg.withDefaults()
	return &Baker{
		cfg:       cfg,
		log:       logger,
		device:    device,
		scheduler: NewWorkScheduler(logger),
		probe:     NewProbeSampler(cfg.ProbeResolution, logger),
	}
}

// Bake snapshots the stage and schedules one renderer per light factor.
// The base layer (factor "") is always baked; named factors get their own
// layer with a compositor multiplier that starts at zero.
func (b *Baker) Bake(stage *WorkbenchStage) error {
	wb, err := stage.Snapshot(b.cfg.AtlasWidth, b.cfg.AtlasHeight)
	if err != nil {
		return err
	}
	b.workbench = wb

	for _, h := range b.handles {
		b.scheduler.Unregister(h)
	}
	b.renderers = b.renderers[:0]
	b.handles = b.handles[:0]

	b.compositor = NewCompositor(b.cfg.AtlasWidth, b.cfg.AtlasHeight)

	factors := append([]string{""}, wb.Factors()...)
	for _, factor := range factors {
		r := NewIrradianceRenderer(wb, factor, b.cfg.Time, b.probe, b.log)
		r.passCount = b.cfg.PassCount
		r.budget = b.cfg.TexelBudget
		b.renderers = append(b.renderers, r)
		b.handles = append(b.handles, b.scheduler.Register(r.LightScene, r.Step))

		if factor == "" {
			b.compositor.SetBaseLayer(r.Output())
		} else {
			b.compositor.SetLayer(factor, r.Output())
		}
	}
	b.log.Infof("bake scheduled: %d layers, %d passes, budget %d texels/tick",
		len(factors), b.cfg.PassCount, b.cfg.TexelBudget)
	return nil
}

// Tick advances the bake by one scheduler step. Renderer output pointers are
// stable (allocated at first setup), so compositor layers are refreshed here
// for renderers that have just produced their buffer.
func (b *Baker) Tick() error {
	if err := b.scheduler.Tick(b.device); err != nil {
		return err
	}
	for _, r := range b.renderers {
		if r.Output() == nil {
			continue
		}
		if r.Factor() == "" {
			b.compositor.SetBaseLayer(r.Output())
		} else {
			b.compositor.SetLayer(r.Factor(), r.Output())
		}
	}
	return nil
}

// Complete reports whether every scheduled renderer has finished all passes.
func (b *Baker) Complete() bool {
	if len(b.renderers) == 0 {
		return false
	}
	for _, r := range b.renderers {
		if !r.OutputIsComplete() {
			return false
		}
	}
	return true
}

// Layer returns the baked texture for one factor ("" for the base layer);
// nil if that factor was never scheduled or has not started yet.
func (b *Baker) Layer(factor string) *FloatImage {
	for _, r := range b.renderers {
		if r.Factor() == factor {
			return r.Output()
		}
	}
	return nil
}

func (b *Baker) Workbench() *Workbench { return b.workbench }

func (b *Baker) SetFactorMultiplier(factor string, m float32) {
	if factor == "" {
		b.compositor.SetBaseMultiplier(m)
		return
	}
	b.compositor.SetMultiplier(factor, m)
}

// Result composites all layers with their current multipliers and returns
// the blended lightmap.
func (b *Baker) Result() *FloatImage {
	return b.compositor.Composite()
}
