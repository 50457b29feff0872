package lightbake

import (
	"github.com/google/uuid"
)

type JobHandle string

// SceneProvider yields the job's current light scene, or nil while the
// scene is not constructed yet (an expected transient state, not an error).
type SceneProvider func() *LightScene

// WorkFn performs one bounded slice of a job's work against the realized
// light scene.
type WorkFn func(dev Device, scene *LightScene) error

type scheduledJob struct {
	handle   JobHandle
	provider SceneProvider
	work     WorkFn
}

// WorkScheduler time-slices pending bake jobs across ticks. Exactly one
// registered job is active per tick: the first, in registration order,
// whose provider currently yields a scene. Serializing the render work
// this way keeps the per-tick cost bounded no matter how many bakes
// (factors, keyframe times) are queued at once.
//
// Unregistering takes effect on the next scheduling decision; a job's
// in-flight probe batch always completes within the tick that started it.
type WorkScheduler struct {
	log  Logger
	jobs []scheduledJob
}

func NewWorkScheduler(logger Logger) *WorkScheduler {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &WorkScheduler{log: logger}
}

func (s *WorkScheduler) Register(provider SceneProvider, work WorkFn) JobHandle {
	handle := JobHandle(uuid.NewString())
	s.jobs = append(s.jobs, scheduledJob{handle: handle, provider: provider, work: work})
	s.log.Debugf("job %s registered (%d pending)", handle, len(s.jobs))
	return handle
}

func (s *WorkScheduler) Unregister(handle JobHandle) {
	for i := range s.jobs {
		if s.jobs[i].handle == handle {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return
		}
	}
}

func (s *WorkScheduler) JobCount() int {
	return len(s.jobs)
}

// Tick runs one slice of the first ready job. Ticks with no ready job are
// no-ops; a scene showing up later is the normal startup sequence.
func (s *WorkScheduler) Tick(dev Device) error {
	for i := range s.jobs {
		scene := s.jobs[i].provider()
		if scene == nil {
			continue
		}
		return s.jobs[i].work(dev, scene)
	}
	return nil
}
