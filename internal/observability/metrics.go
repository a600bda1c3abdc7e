package observability

import (
	"maps"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	tabFetches   map[string]int64
	pushApplied  map[string]int64
	pushDropped  map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		tabFetches:   make(map[string]int64),
		pushApplied:  make(map[string]int64),
		pushDropped:  make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordFetch counts a list fetch for tab, keyed by the refresh reason.
func (m *Metrics) RecordFetch(tab, reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabFetches[tab+"|"+reason]++
}

// RecordPushApplied counts a push event merged into the cache.
func (m *Metrics) RecordPushApplied(action string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushApplied[action]++
}

// RecordPushDropped counts a push event that was discarded.
func (m *Metrics) RecordPushDropped(reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushDropped[reason]++
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests    map[string]int64 `json:"requests"`
	Errors      map[string]int64 `json:"errors"`
	TabFetches  map[string]int64 `json:"tab_fetches"`
	PushApplied map[string]int64 `json:"push_applied"`
	PushDropped map[string]int64 `json:"push_dropped"`
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:    maps.Clone(m.requestCount),
		Errors:      maps.Clone(m.errorCount),
		TabFetches:  maps.Clone(m.tabFetches),
		PushApplied: maps.Clone(m.pushApplied),
		PushDropped: maps.Clone(m.pushDropped),
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
