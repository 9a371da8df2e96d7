// Package metrics keeps in-process counters for the /metrics endpoint.
package metrics

import (
	"maps"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// latencyBounds are the upper edges, in milliseconds, of the request latency
// buckets. Slower requests land in the final overflow bucket.
var latencyBounds = []int64{10, 50, 250, 1000, 5000}

type Collector struct {
	started time.Time

	requests    atomic.Uint64
	durationMs  atomic.Uint64
	byClass     [6]atomic.Uint64 // index is status/100
	rateLimited atomic.Uint64
	latency     []atomic.Uint64

	jobs       atomic.Uint64
	jobsFailed atomic.Uint64

	mu     sync.Mutex
	events map[string]uint64
}

func New() *Collector {
	return &Collector{
		started: time.Now(),
		latency: make([]atomic.Uint64, len(latencyBounds)+1),
		events:  map[string]uint64{},
	}
}

// Record counts one finished HTTP request.
func (c *Collector) Record(status int, duration time.Duration) {
	ms := duration.Milliseconds()
	c.requests.Add(1)
	c.durationMs.Add(uint64(max(ms, 0)))
	if class := status / 100; class >= 1 && class <= 5 {
		c.byClass[class].Add(1)
	}
	if status == http.StatusTooManyRequests {
		c.rateLimited.Add(1)
	}
	bucket := len(latencyBounds)
	for i, bound := range latencyBounds {
		if ms <= bound {
			bucket = i
			break
		}
	}
	c.latency[bucket].Add(1)
}

// RecordJob counts one background job run.
func (c *Collector) RecordJob(failed bool) {
	c.jobs.Add(1)
	if failed {
		c.jobsFailed.Add(1)
	}
}

// Event counts a named domain event such as "employee.hired" or "leave.approved".
func (c *Collector) Event(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[name]++
}

type Snapshot struct {
	UptimeSeconds int64             `json:"uptimeSeconds"`
	Requests      uint64            `json:"requestsTotal"`
	ByStatusClass map[string]uint64 `json:"requestsByStatusClass"`
	Errors        uint64            `json:"errorsTotal"`
	RateLimited   uint64            `json:"rateLimitedTotal"`
	AvgDurationMs float64           `json:"avgDurationMs"`
	LatencyMs     map[string]uint64 `json:"latencyBucketsMs"`
	Jobs          uint64            `json:"jobsTotal"`
	JobsFailed    uint64            `json:"jobsFailedTotal"`
	Events        map[string]uint64 `json:"events"`
}

// Snapshot copies the counters. Values read while requests are in flight may
// be a request or two apart from each other.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		UptimeSeconds: int64(time.Since(c.started).Seconds()),
		Requests:      c.requests.Load(),
		ByStatusClass: make(map[string]uint64, 5),
		Errors:        c.byClass[5].Load(),
		RateLimited:   c.rateLimited.Load(),
		LatencyMs:     make(map[string]uint64, len(c.latency)),
		Jobs:          c.jobs.Load(),
		JobsFailed:    c.jobsFailed.Load(),
	}
	if s.Requests > 0 {
		s.AvgDurationMs = float64(c.durationMs.Load()) / float64(s.Requests)
	}
	for class := 1; class <= 5; class++ {
		s.ByStatusClass[strconv.Itoa(class)+"xx"] = c.byClass[class].Load()
	}
	for i := range c.latency {
		label := "+Inf"
		if i < len(latencyBounds) {
			label = "le" + strconv.FormatInt(latencyBounds[i], 10)
		}
		s.LatencyMs[label] = c.latency[i].Load()
	}

	c.mu.Lock()
	s.Events = maps.Clone(c.events)
	c.mu.Unlock()
	return s
}
