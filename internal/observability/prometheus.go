package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus exports engine metrics on its own registry so that several
// engines (and tests) can coexist in one process.
type Prometheus struct {
	Registry *prometheus.Registry

	lookups     *prometheus.HistogramVec
	submits     prometheus.Histogram
	httpReqs    *prometheus.HistogramVec
	kafka       *prometheus.HistogramVec
	backend     *prometheus.HistogramVec
	passes      prometheus.Histogram
	orders      *prometheus.CounterVec
	online      prometheus.Gauge
	cacheEvents *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Prometheus{
		Registry: reg,
		lookups: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moneyorder_receipt_lookup_ms",
			Help:    "Receipt lookup latency in milliseconds by source",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		}, []string{"source"}),
		submits: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "moneyorder_submit_store_ms",
			Help:    "Time to persist a submitted order in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
		}),
		httpReqs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moneyorder_http_request_ms",
			Help:    "Local API request latency in milliseconds",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}, []string{"method", "route", "status"}),
		kafka: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moneyorder_confirmation_process_ms",
			Help:    "Confirmation message processing time in milliseconds",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		}, []string{"ok"}),
		backend: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moneyorder_backend_call_ms",
			Help:    "Remote backend call latency in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000, 15000},
		}, []string{"op", "ok"}),
		passes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "moneyorder_sync_pass_ms",
			Help:    "Sync pass duration in milliseconds",
			Buckets: []float64{1, 10, 100, 1000, 5000, 30000},
		}),
		orders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moneyorder_orders_settled_total",
			Help: "Orders that reached a terminal state in a sync pass",
		}, []string{"status"}),
		online: f.NewGauge(prometheus.GaugeOpts{
			Name: "moneyorder_online",
			Help: "1 while the backend is reachable",
		}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moneyorder_receipt_cache_total",
			Help: "Receipt cache hits and misses",
		}, []string{"result"}),
	}
}

func (p *Prometheus) ObserveLookup(source string, cacheMs, dbMs float64) {
	p.lookups.WithLabelValues(source).Observe(cacheMs + dbMs)
}

func (p *Prometheus) ObserveSubmit(dbWriteMs float64) {
	p.submits.Observe(dbWriteMs)
}

func (p *Prometheus) ObserveHTTP(method, route string, status int, durMs float64) {
	p.httpReqs.WithLabelValues(method, route, strconv.Itoa(status)).Observe(durMs)
}

func (p *Prometheus) ObserveKafka(processMs float64, ok bool) {
	p.kafka.WithLabelValues(strconv.FormatBool(ok)).Observe(processMs)
}

func (p *Prometheus) ObserveBackend(op string, ok bool, durMs float64) {
	p.backend.WithLabelValues(op, strconv.FormatBool(ok)).Observe(durMs)
}

func (p *Prometheus) ObservePass(durMs float64, synced, failed int) {
	p.passes.Observe(durMs)
	if synced > 0 {
		p.orders.WithLabelValues("synced").Add(float64(synced))
	}
	if failed > 0 {
		p.orders.WithLabelValues("failed").Add(float64(failed))
	}
}

func (p *Prometheus) SetOnline(online bool) {
	if online {
		p.online.Set(1)
		return
	}
	p.online.Set(0)
}

func (p *Prometheus) IncCacheHit()  { p.cacheEvents.WithLabelValues("hit").Inc() }
func (p *Prometheus) IncCacheMiss() { p.cacheEvents.WithLabelValues("miss").Inc() }
