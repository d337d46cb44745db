package solver

import (
	"time"
)

// PlaybackConfig tunes the decorative progress feed.
type PlaybackConfig struct {
	// HashRate is the synthetic rate reported in every event.
	HashRate float64
	// Interval is the spacing between progress events.
	Interval time.Duration
}

// Playback emits synthetic progress events at a fixed hash rate until
// stopped. It computes no hashes and never emits EventFound: nothing it
// produces can be submitted as a solution. Intended for loading
// decoration that consumes the same event stream as a real Worker.
func Playback(cfg PlaybackConfig) *Worker {
	if cfg.HashRate <= 0 {
		cfg.HashRate = 50000
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultReportInterval
	}

	w := &Worker{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(w.events)

		start := time.Now()
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.done:
				return
			case now := <-ticker.C:
				elapsed := now.Sub(start)
				ev := Event{
					Type:     EventProgress,
					Attempts: uint64(cfg.HashRate * elapsed.Seconds()),
					Elapsed:  elapsed,
					HashRate: cfg.HashRate,
				}
				select {
				case w.events <- ev:
				default:
				}
			}
		}
	}()

	return w
}
