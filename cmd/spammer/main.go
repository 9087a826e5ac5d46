package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TemirB/moneyorder-sync/internal/domain"
)

// Spammer submits random money orders to a running engine's HTTP API.
type Spammer struct {
	client    *http.Client
	target    string
	logger    *zap.Logger
	isRunning atomic.Bool
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	totalSent atomic.Int64
	rejected  atomic.Int64
	startedAt time.Time
}

type SpamRequest struct {
	Rate     int    `json:"rate"`
	Duration string `json:"duration"`
}

type SpamStats struct {
	TotalSent int64 `json:"total_sent"`
	Rejected  int64 `json:"rejected"`
	Rate      int   `json:"rate"`
}

func NewSpammer(target string, logger *zap.Logger) *Spammer {
	ctx, cancel := context.WithCancel(context.Background())

	return &Spammer{
		client:    &http.Client{Timeout: 5 * time.Second},
		target:    strings.TrimRight(target, "/") + "/orders",
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		startedAt: time.Now(),
	}
}

func (s *Spammer) StartSpam(rate int, duration time.Duration) {
	if !s.isRunning.CompareAndSwap(false, true) {
		return
	}
	s.totalSent.Store(0)
	s.rejected.Store(0)
	s.startedAt = time.Now()

	s.logger.Info("Starting spam", zap.Int("rate", rate), zap.Duration("duration", duration))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.isRunning.Store(false)

		ticker := time.NewTicker(time.Second / time.Duration(rate))
		defer ticker.Stop()

		timer := time.NewTimer(duration)
		defer timer.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.send(generateFakeOrder()); err != nil {
					s.logger.Warn("Error sending order", zap.Error(err))
					s.rejected.Add(1)
				} else {
					s.totalSent.Add(1)
				}

			case <-timer.C:
				s.logger.Info("Spam completed", zap.Int64("total_sent", s.totalSent.Load()))
				return

			case <-s.ctx.Done():
				s.logger.Info("Spam stopped", zap.Int64("total_sent", s.totalSent.Load()))
				return
			}
		}
	}()
}

func (s *Spammer) send(p domain.OrderPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *Spammer) StopSpam() {
	if s.isRunning.Load() {
		s.cancel()
		s.wg.Wait()

		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
}

func (s *Spammer) GetStats() SpamStats {
	st := SpamStats{
		TotalSent: s.totalSent.Load(),
		Rejected:  s.rejected.Load(),
	}
	if secs := int(time.Since(s.startedAt).Seconds()); secs > 0 {
		st.Rate = int(st.TotalSent) / secs
	}
	return st
}

func (s *Spammer) Close() {
	s.StopSpam()
	s.client.CloseIdleConnections()
}

var (
	names  = []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	denoms = []string{"uusd", "ueur", "ukrw"}
)

func generateFakeOrder() domain.OrderPayload {
	sender := names[rand.Intn(len(names))]
	receiver := names[rand.Intn(len(names))]
	for receiver == sender {
		receiver = names[rand.Intn(len(names))]
	}

	amount := decimal.NewFromInt(int64(rand.Intn(100000) + 1)).Shift(-2)

	p := domain.OrderPayload{
		Sender:   sender,
		Receiver: receiver,
		Amount: domain.Coin{
			Amount: amount.StringFixed(2),
			Denom:  denoms[rand.Intn(len(denoms))],
		},
		Memo:               fmt.Sprintf("load test %d", time.Now().UnixNano()),
		SenderPostalCode:   fmt.Sprintf("%05d", rand.Intn(100000)),
		ReceiverPostalCode: fmt.Sprintf("%05d", rand.Intn(100000)),
	}
	if rand.Intn(10) == 0 {
		p.Priority = "express"
	}
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	target := "http://127.0.0.1:8081"
	if env := os.Getenv("SYNCD_URL"); env != "" {
		target = env
	}

	spammer := NewSpammer(target, logger)
	defer spammer.Close()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /start", func(w http.ResponseWriter, r *http.Request) {
		var req SpamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		if req.Rate <= 0 {
			req.Rate = 10
		}

		duration, err := time.ParseDuration(req.Duration)
		if err != nil {
			http.Error(w, "Invalid duration format: "+err.Error(), http.StatusBadRequest)
			return
		}

		spammer.StartSpam(req.Rate, duration)

		writeJSON(w, map[string]any{
			"status":   "started",
			"rate":     req.Rate,
			"duration": duration.String(),
		})
	})

	mux.HandleFunc("POST /stop", func(w http.ResponseWriter, r *http.Request) {
		spammer.StopSpam()

		writeJSON(w, map[string]any{
			"status":     "stopped",
			"total_sent": spammer.totalSent.Load(),
		})
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"is_running": spammer.isRunning.Load(),
			"stats":      spammer.GetStats(),
		})
	})

	port := ":8082"
	if envPort := os.Getenv("SPAMMER_PORT"); envPort != "" {
		port = ":" + envPort
	}

	logger.Info("Spammer server started", zap.String("addr", port), zap.String("target", spammer.target))
	if err := http.ListenAndServe(port, mux); err != nil {
		logger.Fatal("Spammer server stopped", zap.Error(err))
	}
}
