// Command powgate-loadtest drives a powgate engine through the full
// issue/solve/submit/status cycle and reports throughput and latency
// percentiles. With no -redis-addr flag (and no REDIS_ADDR env) it runs
// against an embedded miniredis, which measures engine overhead rather than
// network round-trips.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	powgate "github.com/powgate/powgate"
	"github.com/powgate/powgate/solver"
)

func main() {
	var (
		rounds      = flag.Int("rounds", 2000, "number of full gate cycles to run")
		concurrency = flag.Int("concurrency", 64, "number of concurrent clients")
		difficulty  = flag.Int("difficulty", 12, "challenge difficulty in bits")
		statusOps   = flag.Int("status-ops", 100000, "status checks in the status phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *rounds <= 0 || *concurrency <= 0 || *difficulty < 1 || *difficulty > 32 {
		fmt.Fprintln(os.Stderr, "rounds and concurrency must be > 0, difficulty in 1..32")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := powgate.DefaultConfig()
	cfg.Challenge.DifficultyBits = uint8(*difficulty)
	// The load test intentionally hammers one fingerprint per worker.
	cfg.RateLimit.MaxRequests = *rounds + 1
	cfg.RateLimit.Window = time.Hour
	cfg.Reaper.Enabled = false
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Token.PrivateKey = []byte("loadtest-secret-loadtest-secret")

	engine, err := powgate.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("running %d cycles at %d-bit difficulty with %d clients...\n", *rounds, *difficulty, *concurrency)
	cycleStats, tokens := runCyclePhase(engine, *rounds, *concurrency)
	statusStats := runStatusPhase(engine, tokens, *statusOps, *concurrency)

	fmt.Println("---- results ----")
	printStats("cycle (issue+solve+submit)", cycleStats)
	printStats("status", statusStats)

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("engine counters: issued=%d submit_ok=%d invalid=%d replays=%d\n",
		snapshot.Counters[powgate.MetricChallengeIssued],
		snapshot.Counters[powgate.MetricSubmitSuccess],
		snapshot.Counters[powgate.MetricSubmitInvalidNonce],
		snapshot.Counters[powgate.MetricSubmitNotFound],
	)
}

func runCyclePhase(engine *powgate.Engine, rounds, concurrency int) (phaseStats, []clientToken) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, rounds)
		tokens    = make([]clientToken, 0, rounds)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			ua := fmt.Sprintf("loadtest-client/%d", worker)
			ctx := powgate.WithUserAgent(context.Background(), ua)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= rounds {
					return
				}

				t0 := time.Now()
				result, err := runCycle(ctx, engine)
				d := time.Since(t0)

				mu.Lock()
				latencies = append(latencies, d)
				if err != nil {
					failures++
				} else {
					tokens = append(tokens, clientToken{ua: ua, token: result.Token})
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures), tokens
}

func runCycle(ctx context.Context, engine *powgate.Engine) (*powgate.SubmitResult, error) {
	grant, err := engine.IssueChallenge(ctx)
	if err != nil {
		return nil, err
	}

	w := solver.Start(grant.Payload[:], grant.DifficultyBits, solver.Config{})
	defer w.Stop()

	for event := range w.Events() {
		if event.Type == solver.EventFound {
			submitCtx := powgate.WithSolveTelemetry(ctx, event.Elapsed, event.Attempts)
			return engine.SubmitSolution(submitCtx, grant.ChallengeID, event.Nonce)
		}
	}
	return nil, fmt.Errorf("solver stopped without a solution")
}

type clientToken struct {
	ua    string
	token string
}

func runStatusPhase(engine *powgate.Engine, tokens []clientToken, ops, concurrency int) phaseStats {
	if len(tokens) == 0 {
		return phaseStats{}
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				ct := tokens[i%len(tokens)]
				ctx := powgate.WithUserAgent(context.Background(), ct.ua)

				t0 := time.Now()
				_, err := engine.CheckStatus(ctx, ct.token)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
