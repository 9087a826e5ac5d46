package observability

import "sync"

type observe struct {
	Kind    string
	Source  string
	Method  string
	Route   string
	Status  int
	Dur     float64
	CacheMs float64
	DbMs    float64
	OK      bool
	Synced  int
	Failed  int
}

// Inmem keeps the last max observations, for debugging and tests.
type Inmem struct {
	mu     sync.Mutex
	last   []*observe
	max    int
	online bool
	totals struct {
		cacheHits, cacheMiss int
	}
}

func NewInmem(max int) *Inmem {
	return &Inmem{
		max: max,
	}
}

func (m *Inmem) push(v *observe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[len(m.last)-m.max:]
	}
}

func (m *Inmem) ObserveLookup(source string, cacheMs, dbMs float64) {
	m.push(&observe{Kind: "lookup", Source: source, CacheMs: cacheMs, DbMs: dbMs})
}

func (m *Inmem) ObserveSubmit(dbWriteMs float64) {
	m.push(&observe{Kind: "submit", DbMs: dbWriteMs})
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.push(&observe{Kind: "http", Method: method, Route: route, Status: status, Dur: durMs})
}

func (m *Inmem) ObserveKafka(processMs float64, ok bool) {
	m.push(&observe{Kind: "kafka", Dur: processMs, OK: ok})
}

func (m *Inmem) ObserveBackend(op string, ok bool, durMs float64) {
	m.push(&observe{Kind: "backend", Route: op, OK: ok, Dur: durMs})
}

func (m *Inmem) ObservePass(durMs float64, synced, failed int) {
	m.push(&observe{Kind: "pass", Dur: durMs, Synced: synced, Failed: failed})
}

func (m *Inmem) SetOnline(online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
}

func (m *Inmem) IncCacheHit() {
	m.mu.Lock()
	m.totals.cacheHits++
	m.mu.Unlock()
}

func (m *Inmem) IncCacheMiss() {
	m.mu.Lock()
	m.totals.cacheMiss++
	m.mu.Unlock()
}
