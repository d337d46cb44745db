package reaper

import (
	"context"
	"sync"
	"time"
)

// Target is one sweepable store. It removes entries that are expired
// relative to now and reports how many it deleted.
type Target struct {
	Name  string
	Sweep func(ctx context.Context, now time.Time) (int, error)
}

// Result reports the outcome of sweeping a single target.
type Result struct {
	Target  string
	Removed int
	Err     error
}

// Reaper periodically sweeps a set of targets.
type Reaper struct {
	interval time.Duration
	timeout  time.Duration
	targets  []Target
	report   func(Result)

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Config holds reaper tuning parameters.
type Config struct {
	// Interval between sweep passes.
	Interval time.Duration
	// Timeout bounds a single pass over all targets.
	Timeout time.Duration
	// Report, when set, receives one Result per target per pass.
	Report func(Result)
}

// New creates a stopped [Reaper]. Call [Reaper.Start] to begin the loop.
func New(cfg Config, targets ...Target) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Reaper{
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		targets:  targets,
		report:   cfg.Report,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. The first pass runs after one interval;
// callers wanting an immediate sweep should call [Reaper.RunOnce] first.
func (r *Reaper) Start() {
	r.wg.Add(1)
	go r.run()
}

// RunOnce sweeps every target a single time. Safe to call whether or not the
// loop is running.
func (r *Reaper) RunOnce(ctx context.Context) []Result {
	now := time.Now()
	results := make([]Result, 0, len(r.targets))

	for _, target := range r.targets {
		removed, err := target.Sweep(ctx, now)
		result := Result{Target: target.Name, Removed: removed, Err: err}
		results = append(results, result)
		if r.report != nil {
			r.report(result)
		}
	}

	return results
}

// Stop halts the loop and waits for any pass in flight to finish.
// Idempotent.
func (r *Reaper) Stop() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

func (r *Reaper) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			r.RunOnce(ctx)
			cancel()
		case <-r.done:
			return
		}
	}
}
