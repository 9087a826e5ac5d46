package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/application/retention"
	"github.com/TemirB/moneyorder-sync/internal/application/service"
	"github.com/TemirB/moneyorder-sync/internal/application/syncer"
	"github.com/TemirB/moneyorder-sync/internal/domain"
	"github.com/TemirB/moneyorder-sync/internal/notify"
	"github.com/TemirB/moneyorder-sync/internal/observability"
)

//go:generate mockgen -source httpapi.go -destination=httpapi_mock_test.go -package=httpapi

const heartbeatInterval = 15 * time.Second

type Service interface {
	SubmitWithStats(ctx context.Context, payload domain.OrderPayload) (string, service.SubmitStats, error)
	GetStatus(ctx context.Context, orderID string) (*domain.PendingOrder, error)
	ListPending(ctx context.Context) ([]domain.PendingOrder, error)
	Retry(ctx context.Context, orderID string) error
	ForceSync(ctx context.Context) (syncer.PassResult, error)
	SyncStatus(ctx context.Context) (service.SyncStatus, error)
	Subscribe() *notify.Subscription
	CachedReceipts(ctx context.Context, sender string) ([]domain.Receipt, error)
	ReceiptWithStats(ctx context.Context, id string) (*domain.Receipt, service.LookupStats, error)
	CachedPools(ctx context.Context, poolType string) ([]domain.Pool, error)
	CachePools(ctx context.Context, pools []domain.Pool) error
}

type Archive interface {
	Export(ctx context.Context) (*retention.Snapshot, error)
	Import(ctx context.Context, snap *retention.Snapshot) (retention.ImportResult, error)
}

type Server struct {
	service  Service
	archive  Archive
	router   chi.Router
	validate *validator.Validate
	logger   *zap.Logger
	metrics  observability.Metrics
	gatherer prometheus.Gatherer
}

// New builds the local API. A nil gatherer leaves /metrics unrouted.
func New(service Service, archive Archive, logger *zap.Logger, metrics observability.Metrics, gatherer prometheus.Gatherer) *Server {
	if metrics == nil {
		metrics = observability.Noop{}
	}
	s := &Server{
		service:  service,
		archive:  archive,
		router:   chi.NewRouter(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(ServerTimingApp(s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", s.submitOrder)
		r.Get("/", s.listPending)
		r.Get("/{id}", s.getOrder)
		r.Post("/{id}/retry", s.retryOrder)
	})

	r.Post("/sync", s.forceSync)
	r.Get("/sync/status", s.syncStatus)
	r.Get("/events", s.events)

	r.Get("/receipts", s.listReceipts)
	r.Get("/receipts/{id}", s.getReceipt)

	r.Get("/pools", s.listPools)
	r.Put("/pools", s.putPools)

	r.Get("/export", s.export)
	r.Post("/import", s.importData)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	var payload domain.OrderPayload
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&payload); err != nil {
		s.logger.Warn("Error while decoding JSON", zap.Error(err))
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	if err := s.validatePayload(payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, st, err := s.service.SubmitWithStats(r.Context(), payload)
	if err != nil {
		s.logger.Error("Submit failed", zap.Error(err))
		http.Error(w, "Service error", http.StatusInternalServerError)
		return
	}

	observability.AppendServerTiming(w, "db_write", st.DBWriteMs, "")
	observability.AppendServerTiming(w, "fast_path", st.FastPathMs, st.FastPath)

	w.Header().Set("Location", "/orders/"+id)
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"id": id, "status": string(domain.StatusPending)})
}

// validatePayload checks the struct tags and that the amount is a positive
// decimal. The amount string itself is stored untouched.
func (s *Server) validatePayload(p domain.OrderPayload) error {
	if err := s.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid field %s: %s", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	amount, err := decimal.NewFromString(p.Amount.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q", p.Amount.Amount)
	}
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	orders, err := s.service.ListPending(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.service.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, o)
}

func (s *Server) retryOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.Retry(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"id": id, "status": string(domain.StatusPending)})
}

func (s *Server) forceSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.ForceSync(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.SyncStatus(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, st)
}

// events streams order events as server-sent events until the client
// goes away.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := s.service.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("Error while encoding event", zap.Error(err))
				continue
			}
			_, _ = fmt.Fprintf(w, "event: order\ndata: %s\n\n", data)
		}
		flusher.Flush()
	}
}

func (s *Server) listReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.CachedReceipts(r.Context(), r.URL.Query().Get("sender"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, receipts)
}

func (s *Server) getReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, st, err := s.service.ReceiptWithStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	observability.AppendServerTiming(w, "cache", st.CacheMs, "")
	observability.AppendServerTiming(w, "db", st.DBMs, "")
	observability.SetSource(w, string(st.Source))
	observability.SetIfPos(w, "X-Cache-Time", st.CacheMs)
	observability.SetIfPos(w, "X-DB-Time", st.DBMs)

	writeJSON(w, receipt)
}

func (s *Server) listPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.service.CachedPools(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, pools)
}

func (s *Server) putPools(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}
	var pools []domain.Pool
	if err := json.NewDecoder(r.Body).Decode(&pools); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	for _, p := range pools {
		if p.PoolID == "" {
			http.Error(w, "poolId is required", http.StatusBadRequest)
			return
		}
	}
	if err := s.service.CachePools(r.Context(), pools); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	snap, err := s.archive.Export(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	name := fmt.Sprintf("money-order-export-%s.json", snap.ExportDate.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := retention.Encode(w, snap); err != nil {
		s.logger.Error("Error while writing export", zap.Error(err))
	}
}

func (s *Server) importData(w http.ResponseWriter, r *http.Request) {
	snap, err := retention.Decode(r.Body)
	if err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	res, err := s.archive.Import(r.Context(), snap)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, res)
}

// fail maps an error from the service onto a status code.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrNotRetryable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, syncer.ErrPassInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, syncer.ErrOffline):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error("Request failed", zap.Error(err))
		http.Error(w, "Service error", http.StatusInternalServerError)
	}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		// ends open event streams on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("HTTP API listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Handler() http.Handler { return s.router }
