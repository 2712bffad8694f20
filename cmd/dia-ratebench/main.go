// Command dia-ratebench hammers the rate limiter from many goroutines and reports
// throughput, latency percentiles and whether any identity was admitted beyond its
// capacity within one window.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/netip"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dia-accounts/dia/internal/rate"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		identities  = flag.Int("identities", 64, "number of distinct client addresses")
		capacity    = flag.Int64("capacity", 60, "requests admitted per identity per window")
		window      = flag.Duration("window", time.Hour, "window length")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "total checks")
		groupName   = flag.String("group", "general", "rate-limit group: general, login or register")
		redisAddrs  = flag.String("redis-addrs", "", "comma separated redis addresses; if empty, DIA_REDIS_ADDRS or miniredis is used")
		prefix      = flag.String("prefix", "bench", "counter key prefix")
	)
	flag.Parse()

	if *identities <= 0 || *capacity <= 0 || *concurrency <= 0 || *ops <= 0 || *window <= 0 {
		fmt.Fprintln(os.Stderr, "identities, capacity, concurrency, ops and window must be > 0")
		os.Exit(2)
	}
	group, err := rate.ParseGroup(*groupName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	client, cleanup, err := connect(*redisAddrs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	limiter := rate.New(rate.NewRedisStore(client), rate.Config{Prefix: *prefix + ":" + time.Now().UTC().Format("150405")})
	limits := make([]rate.Limit, *identities)
	for i := range limits {
		limits[i] = rate.Limit{
			Group:      group,
			Identifier: rate.AddressIdentifier(netip.AddrFrom4([4]byte{10, byte(i >> 16), byte(i >> 8), byte(i)})),
			Capacity:   *capacity,
			Window:     *window,
		}
	}

	res := run(context.Background(), limiter, limits, *ops, *concurrency)
	res.print(*capacity)
	if res.overAdmitted > 0 {
		os.Exit(1)
	}
}

func connect(flagAddrs string) (redis.UniversalClient, func(), error) {
	addrs := flagAddrs
	if addrs == "" {
		addrs = os.Getenv("DIA_REDIS_ADDRS")
	}
	if addrs == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: strings.Split(addrs, ",")})
	fmt.Printf("using redis at %s\n", addrs)
	return client, func() { _ = client.Close() }, nil
}

type result struct {
	total        time.Duration
	latencies    []time.Duration
	admitted     []int64
	limited      int64
	failures     int64
	overAdmitted int
}

func run(ctx context.Context, limiter *rate.Limiter, limits []rate.Limit, ops, concurrency int) result {
	var (
		wg        sync.WaitGroup
		cursor    int64
		limited   int64
		failures  int64
		admitted  = make([]int64, len(limits))
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
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				idx := r.Intn(len(limits))
				t0 := time.Now()
				err := limiter.Check(ctx, limits[idx])
				d := time.Since(t0)
				switch {
				case err == nil:
					atomic.AddInt64(&admitted[idx], 1)
				case errors.Is(err, rate.ErrRateLimited):
					atomic.AddInt64(&limited, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	res := result{
		total:     time.Since(start),
		latencies: latencies,
		admitted:  admitted,
		limited:   limited,
		failures:  failures,
	}
	for i, n := range admitted {
		if n > limits[i].Capacity {
			res.overAdmitted++
		}
	}
	return res
}

func (r result) print(capacity int64) {
	sort.Slice(r.latencies, func(i, j int) bool { return r.latencies[i] < r.latencies[j] })
	var admitted int64
	for _, n := range r.admitted {
		admitted += n
	}
	opsPerS := 0.0
	if r.total > 0 {
		opsPerS = float64(len(r.latencies)) / r.total.Seconds()
	}

	fmt.Println("---- results ----")
	fmt.Printf("checks=%d admitted=%d limited=%d failures=%d total=%s ops/sec=%.0f\n",
		len(r.latencies), admitted, r.limited, r.failures, r.total.Round(time.Millisecond), opsPerS)
	fmt.Printf("latency p50=%s p95=%s p99=%s\n",
		percentile(r.latencies, 50).Round(time.Microsecond),
		percentile(r.latencies, 95).Round(time.Microsecond),
		percentile(r.latencies, 99).Round(time.Microsecond))
	fmt.Printf("identities over capacity %d: %d\n", capacity, r.overAdmitted)
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}
