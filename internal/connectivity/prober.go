package connectivity

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Prober feeds a Monitor by pinging the backend on an interval. Any error,
// including a timeout, counts as offline.
type Prober struct {
	monitor  *Monitor
	pinger   pinger
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProber(m *Monitor, p pinger, interval, timeout time.Duration, logger *zap.Logger) *Prober {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Prober{
		monitor:  m,
		pinger:   p,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Probe performs a single check and updates the monitor.
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.pinger.Ping(ctx)
	if err != nil {
		p.logger.Debug("Backend probe failed", zap.Error(err))
	}
	p.monitor.Set(err == nil)
	return err == nil
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Probe(ctx)
		}
	}
}
