package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes HTTP requests from SQL statements.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is a single timing sample.
type Entry struct {
	Kind       EntryKind
	Label      string // route ("GET /api/branches/:branch/slots") or statement ("SELECT slot")
	Status     int    // HTTP status, 0 for statements
	DurationMs float64
	At         time.Time
}

// Collector is a fixed-size ring of timing samples. When full, the oldest
// sample is overwritten. Aggregation happens only in Snapshot.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	filled  int
	total   atomic.Int64
}

// NewCollector creates a collector holding up to size samples.
// A size of zero or less applies DefaultRingSize.
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size)}
}

// Record stores e, overwriting the oldest sample when the ring is full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % len(c.entries)
	if c.filled < len(c.entries) {
		c.filled++
	}
	c.mu.Unlock()
	c.total.Add(1)
}

// TotalRecorded returns the number of samples ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return c.total.Load()
}

// Snapshot is the aggregated view served on /admin/perf.
type Snapshot struct {
	Since        time.Time   `json:"since"`
	Recorded     int64       `json:"recorded"`
	Requests     int         `json:"requests"`
	ServerErrors int         `json:"server_errors"`
	RequestP50Ms float64     `json:"request_p50_ms"`
	RequestP95Ms float64     `json:"request_p95_ms"`
	RequestP99Ms float64     `json:"request_p99_ms"`
	Routes       []LabelStat `json:"slowest_routes"`
	Statements   []LabelStat `json:"slowest_statements"`
}

// LabelStat aggregates the samples sharing one label.
type LabelStat struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	TotalMs float64 `json:"total_ms"`
}

func (s *LabelStat) add(ms float64) {
	s.Count++
	s.TotalMs += ms
	if ms > s.MaxMs {
		s.MaxMs = ms
	}
}

// Snapshot aggregates samples taken at or after since, keeping the topN
// slowest labels of each kind by average.
// PRE: topN >= 0
// POST: Returns percentiles over requests and top-N lists
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.filled)
	copy(buf, c.entries[:c.filled])
	c.mu.Unlock()

	snap := Snapshot{Since: since, Recorded: c.TotalRecorded()}
	var durations []float64
	routes := make(map[string]*LabelStat)
	statements := make(map[string]*LabelStat)

	for _, e := range buf {
		if e.At.Before(since) {
			continue
		}
		group := statements
		if e.Kind == KindRequest {
			group = routes
			durations = append(durations, e.DurationMs)
			if e.Status >= 500 {
				snap.ServerErrors++
			}
		}
		s, ok := group[e.Label]
		if !ok {
			s = &LabelStat{Label: e.Label}
			group[e.Label] = s
		}
		s.add(e.DurationMs)
	}

	snap.Requests = len(durations)
	snap.Routes = slowest(routes, topN)
	snap.Statements = slowest(statements, topN)
	if len(durations) > 0 {
		sort.Float64s(durations)
		snap.RequestP50Ms = percentile(durations, 50)
		snap.RequestP95Ms = percentile(durations, 95)
		snap.RequestP99Ms = percentile(durations, 99)
	}
	return snap
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func slowest(stats map[string]*LabelStat, n int) []LabelStat {
	list := make([]LabelStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs != list[j].AvgMs {
			return list[i].AvgMs > list[j].AvgMs
		}
		return list[i].Label < list[j].Label
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
