package observability

type Metrics interface {
	ObserveLookup(source string, cacheMs, dbMs float64)
	ObserveSubmit(dbWriteMs float64)
	ObserveHTTP(method, route string, status int, durMs float64)
	ObserveKafka(processMs float64, ok bool)
	ObserveBackend(op string, ok bool, durMs float64)
	ObservePass(durMs float64, synced, failed int)
	SetOnline(online bool)
	IncCacheHit()
	IncCacheMiss()
}

type Noop struct{}

func (Noop) ObserveLookup(string, float64, float64)   {}
func (Noop) ObserveSubmit(float64)                    {}
func (Noop) ObserveHTTP(string, string, int, float64) {}
func (Noop) ObserveKafka(float64, bool)               {}
func (Noop) ObserveBackend(string, bool, float64)     {}
func (Noop) ObservePass(float64, int, int)            {}
func (Noop) SetOnline(bool)                           {}
func (Noop) IncCacheHit()                             {}
func (Noop) IncCacheMiss()                            {}
