package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

// defaultLoadQueries are deliberately misspelled so the fuzzy path does the
// work.
var defaultLoadQueries = []string{
	"picaso",
	"van gog",
	"rembrant",
	"monet water liles",
	"kahlo",
	"klimt kiss",
	"cezane",
	"vermer pearl",
}

type loadConfig struct {
	BaseURL     string
	Class       string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
}

type loadStats struct {
	total       atomic.Int64
	success     atomic.Int64
	errors      atomic.Int64
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func (s *loadStats) record(d time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil || status < 200 || status >= 300 {
		s.errors.Add(1)
	} else {
		s.success.Add(1)
	}
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
}

func newLoadTestCmd() *cobra.Command {
	cfg := loadConfig{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running search service with concurrent queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cfg.Queries) == 0 {
				cfg.Queries = defaultLoadQueries
			}
			cmd.Printf("Target %s, class %s, %d workers for %s\n", cfg.BaseURL, cfg.Class, cfg.Concurrency, cfg.Duration)
			stats := runLoad(cmd.Context(), &http.Client{Timeout: 10 * time.Second}, cfg)
			printLoadReport(cmd, stats, cfg.Duration)
			if stats.total.Load() == 0 {
				return fmt.Errorf("no requests completed; is the service running at %s?", cfg.BaseURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the search service")
	cmd.Flags().StringVar(&cfg.Class, "class", "", "indexed class to search")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().IntVar(&cfg.Limit, "limit", 10, "results per query")
	cmd.Flags().StringArrayVar(&cfg.Queries, "query", nil, "query to send (repeatable)")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func runLoad(ctx context.Context, client *http.Client, cfg loadConfig) *loadStats {
	stats := &loadStats{statusCodes: make(map[int]int64)}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ctx.Err() == nil; i++ {
				q := url.Values{
					"class": {cfg.Class},
					"q":     {cfg.Queries[i%len(cfg.Queries)]},
					"limit": {fmt.Sprint(cfg.Limit)},
				}
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/api/v1/search?"+q.Encode(), nil)
				if err != nil {
					stats.record(0, 0, err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.record(time.Since(start), 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(time.Since(start), resp.StatusCode, nil)
			}
		}()
	}
	wg.Wait()
	return stats
}

func printLoadReport(cmd *cobra.Command, stats *loadStats, duration time.Duration) {
	total := stats.total.Load()
	cmd.Printf("Requests: %d  ok: %d  errors: %d\n", total, stats.success.Load(), stats.errors.Load())
	if total > 0 {
		cmd.Printf("Throughput: %.2f req/s\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	if len(latencies) > 0 {
		cmd.Printf("Latency p50 %s  p90 %s  p99 %s  max %s\n",
			percentile(latencies, 50), percentile(latencies, 90),
			percentile(latencies, 99), latencies[len(latencies)-1])
	}

	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		cmd.Printf("  %d: %d\n", code, stats.statusCodes[code])
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
