// Command credgate-loadtest hammers the attempt limiter from many goroutines
// and checks that no increment was lost.
//
// Without --redis-addr or REDIS_ADDR it runs against an embedded miniredis.
//
//	go run ./cmd/credgate-loadtest --identifiers 500 --ops 200000
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/goCred/attempts"
)

func main() {
	var (
		identifiers = pflag.Int("identifiers", 1000, "number of distinct identifiers")
		concurrency = pflag.Int("concurrency", 256, "number of concurrent workers")
		ops         = pflag.Int("ops", 200000, "RecordAttempt calls in the record phase")
		redisAddr   = pflag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		storeKind   = pflag.String("store", "redis", "attempt store: redis or memory")
	)
	pflag.Parse()

	if *identifiers <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "identifiers, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	var (
		store   attempts.Store
		cleanup = func() {}
	)
	switch *storeKind {
	case "memory":
		mem, err := attempts.NewMemoryStore(*identifiers)
		if err != nil {
			fmt.Fprintf(os.Stderr, "memory store: %v\n", err)
			os.Exit(1)
		}
		store = mem
		fmt.Println("using in-memory store")
	case "redis":
		client, closeFn, err := openRedis(*redisAddr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		store = attempts.NewRedisStore(client)
		cleanup = closeFn
	default:
		fmt.Fprintf(os.Stderr, "unknown store %q\n", *storeKind)
		os.Exit(2)
	}
	defer cleanup()

	// Counts must never expire or saturate during the run.
	limiter := attempts.New(store, attempts.Config{
		MaxAttempts:     *ops + 1,
		LockoutDuration: 24 * time.Hour,
	})

	ids := make([]string, *identifiers)
	for i := range ids {
		ids[i] = fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xff, (i>>8)&0xff, i&0xff)
		if err := limiter.ResetAttempts(ctx, ids[i]); err != nil {
			fmt.Fprintf(os.Stderr, "reset failed: %v\n", err)
			os.Exit(1)
		}
	}

	expected := make([]int64, len(ids))
	recordStats := runRecordPhase(ctx, limiter, ids, expected, *ops, *concurrency)
	checkStats, lost := runCheckPhase(ctx, limiter, store, ids, expected, *concurrency)

	fmt.Println("---- results ----")
	printStats("record", recordStats)
	printStats("check", checkStats)
	if lost > 0 {
		fmt.Printf("FAIL: %d identifiers lost increments\n", lost)
		cleanup()
		os.Exit(1)
	}
	fmt.Println("ok: every increment accounted for")
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runRecordPhase(ctx context.Context, limiter *attempts.Limiter, ids []string, expected []int64, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(ids))
				t0 := time.Now()
				_, err := limiter.RecordAttempt(ctx, ids[idx])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					atomic.AddInt64(&expected[idx], 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runCheckPhase compares every stored count with the successful calls made
// for it and returns how many identifiers disagree.
func runCheckPhase(ctx context.Context, limiter *attempts.Limiter, store attempts.Store, ids []string, expected []int64, concurrency int) (phaseStats, int64) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		lost      int64
		latencies = make([]time.Duration, 0, len(ids))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(ids) {
					return
				}
				t0 := time.Now()
				_, err := limiter.IsBlocked(ctx, ids[i])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				rec, ok, err := store.Load(ctx, ids[i])
				want := atomic.LoadInt64(&expected[i])
				switch {
				case err != nil:
					atomic.AddInt64(&failures, 1)
				case !ok && want != 0, ok && int64(rec.Count) != want:
					atomic.AddInt64(&lost, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), lost
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
	return samples[(len(samples)-1)*p/100]
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
