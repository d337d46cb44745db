package solver

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/powgate/powgate/pow"
)

// EventType discriminates the events a Worker emits.
type EventType uint8

const (
	// EventProgress reports search progress at the configured cadence.
	EventProgress EventType = iota
	// EventFound is the single terminal event carrying the winning nonce.
	EventFound
)

// Event is a progress or terminal message from a Worker.
type Event struct {
	Type     EventType
	Attempts uint64
	Elapsed  time.Duration
	HashRate float64
	// Nonce and Digest are set only when Type is EventFound.
	Nonce  uint32
	Digest [32]byte
}

// Config tunes the search loop. Zero values select the defaults.
type Config struct {
	// BatchSize is the number of hashes computed between wall-clock and
	// cancellation checks.
	BatchSize int
	// ReportInterval is the minimum spacing between progress events.
	ReportInterval time.Duration
	// StartNonce pins the initial nonce when StartNonceSet is true;
	// otherwise the worker picks one at random across the full uint32
	// range.
	StartNonce    uint32
	StartNonceSet bool
}

const (
	defaultBatchSize      = 20000
	defaultReportInterval = 250 * time.Millisecond
)

// Worker drives the nonce search on a dedicated goroutine.
type Worker struct {
	events   chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Start begins searching for a nonce such that
// pow.Verify(payload, nonce, difficultyBits) holds. The returned
// Worker's Events channel carries progress events and, on success, one
// terminal EventFound, after which the channel is closed.
func Start(payload []byte, difficultyBits uint8, cfg Config) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = defaultReportInterval
	}

	w := &Worker{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}

	// Copy the payload so the caller may reuse its buffer.
	owned := make([]byte, len(payload))
	copy(owned, payload)

	w.wg.Add(1)
	go w.run(owned, difficultyBits, cfg)

	return w
}

// Events returns the worker's event channel. It is closed after the
// terminal event or once Stop completes.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Stop cancels the search. It blocks until the worker goroutine has
// exited; no events are delivered after Stop returns. Stopping an
// already-finished worker is a no-op.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	w.wg.Wait()
}

func (w *Worker) run(payload []byte, difficultyBits uint8, cfg Config) {
	defer w.wg.Done()
	defer close(w.events)

	nonce := cfg.StartNonce
	if !cfg.StartNonceSet {
		nonce = randomNonce()
	}

	start := time.Now()
	lastReport := start
	var attempts uint64

	for {
		for i := 0; i < cfg.BatchSize; i++ {
			digest := pow.Digest(payload, nonce)
			attempts++

			if pow.MeetsDifficulty(digest, difficultyBits) {
				elapsed := time.Since(start)
				found := Event{
					Type:     EventFound,
					Attempts: attempts,
					Elapsed:  elapsed,
					HashRate: rate(attempts, elapsed),
					Nonce:    nonce,
					Digest:   digest,
				}
				select {
				case w.events <- found:
				case <-w.done:
				}
				return
			}

			nonce++ // wraps at 2^32
		}

		select {
		case <-w.done:
			return
		default:
		}

		if now := time.Now(); now.Sub(lastReport) >= cfg.ReportInterval {
			lastReport = now
			elapsed := now.Sub(start)
			progress := Event{
				Type:     EventProgress,
				Attempts: attempts,
				Elapsed:  elapsed,
				HashRate: rate(attempts, elapsed),
			}
			// Progress is advisory: drop it rather than stall the search
			// behind a slow consumer.
			select {
			case w.events <- progress:
			default:
			}
		}
	}
}

func rate(attempts uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(attempts) / elapsed.Seconds()
}

func randomNonce() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Degrade to a time-derived start; the start point only spreads
		// search ranges across clients, it carries no security weight.
		return uint32(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint32(b[:])
}
