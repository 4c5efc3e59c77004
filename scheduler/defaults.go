package scheduler

import (
	"sync"
)

// Process-wide default schedulers. They are lazily initialized on first
// access and explicitly injectable so tests can substitute fixtures.
var defaults struct {
	mu        sync.Mutex
	cfg       Config
	cfgSet    bool
	immediate Scheduler
	single    Scheduler
	parallel  Scheduler
	elastic   Scheduler
	bounded   Scheduler
}

// InitDefaults configures the settings used when default schedulers are
// lazily created. Calling it after a default has been created does not
// rebuild that default; call Shutdown first.
func InitDefaults(cfg Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	defaults.mu.Lock()
	defaults.cfg = cfg
	defaults.cfgSet = true
	defaults.mu.Unlock()
	return nil
}

func defaultConfig() Config {
	if !defaults.cfgSet {
		defaults.cfg.ApplyDefaults()
		defaults.cfgSet = true
	}
	return defaults.cfg
}

// Immediate returns the shared immediate scheduler.
func Immediate() Scheduler {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	if defaults.immediate == nil {
		defaults.immediate = NewImmediate()
	}
	return defaults.immediate
}

// Single returns the shared single-lane scheduler.
func Single() Scheduler {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	if defaults.single == nil {
		defaults.single = NewSingle()
	}
	return defaults.single
}

// Parallel returns the shared fixed-parallelism scheduler. Time-based
// pipeline stages hop to this scheduler unless explicitly overridden.
func Parallel() Scheduler {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	if defaults.parallel == nil {
		defaults.parallel = NewParallel(defaultConfig().Parallelism)
	}
	return defaults.parallel
}

// Elastic returns the shared unbounded-elastic scheduler.
func Elastic() Scheduler {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	if defaults.elastic == nil {
		defaults.elastic = NewElastic(defaultConfig().ElasticTTL)
	}
	return defaults.elastic
}

// BoundedElastic returns the shared bounded-elastic scheduler.
func BoundedElastic() Scheduler {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	if defaults.bounded == nil {
		cfg := defaultConfig()
		defaults.bounded = NewBoundedElastic(cfg.BoundedMaxLanes, cfg.BoundedMaxQueued, cfg.ElasticTTL)
	}
	return defaults.bounded
}

// SetParallel substitutes the shared parallel scheduler. The previous
// instance, if any, is returned so the caller can dispose or restore it.
func SetParallel(s Scheduler) Scheduler {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	prev := defaults.parallel
	defaults.parallel = s
	return prev
}

// SetSingle substitutes the shared single scheduler.
func SetSingle(s Scheduler) Scheduler {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	prev := defaults.single
	defaults.single = s
	return prev
}

// SetElastic substitutes the shared elastic scheduler.
func SetElastic(s Scheduler) Scheduler {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	prev := defaults.elastic
	defaults.elastic = s
	return prev
}

// SetBoundedElastic substitutes the shared bounded-elastic scheduler.
func SetBoundedElastic(s Scheduler) Scheduler {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	prev := defaults.bounded
	defaults.bounded = s
	return prev
}

// Shutdown disposes every default scheduler that was created and resets
// the lazy slots so later accesses build fresh instances.
func Shutdown() {
	defaults.mu.Lock()
	created := []Scheduler{defaults.immediate, defaults.single, defaults.parallel, defaults.elastic, defaults.bounded}
	defaults.immediate = nil
	defaults.single = nil
	defaults.parallel = nil
	defaults.elastic = nil
	defaults.bounded = nil
	defaults.mu.Unlock()

	for _, s := range created {
		if s != nil {
			s.Dispose()
		}
	}
}
