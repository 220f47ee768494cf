package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HealthStatus is the last observed provider health.
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency_ms"`
	Detail    string        `json:"detail,omitempty"`
}

// HealthMonitor probes the provider with a cheap history call. It is an
// explicit injected service, not ambient global state: the prediction and
// strategy core never touches it.
type HealthMonitor struct {
	mu          sync.RWMutex
	provider    Provider
	probeTicker string
	status      HealthStatus
	log         zerolog.Logger
}

// NewHealthMonitor builds a monitor that probes with the given ticker.
func NewHealthMonitor(p Provider, probeTicker string, log zerolog.Logger) *HealthMonitor {
	return &HealthMonitor{
		provider:    p,
		probeTicker: probeTicker,
		log:         log.With().Str("component", "health").Logger(),
	}
}

// Refresh performs one probe and records the outcome.
func (m *HealthMonitor) Refresh(ctx context.Context) HealthStatus {
	start := time.Now()
	_, err := m.provider.PriceHistory(ctx, m.probeTicker, 5)

	status := HealthStatus{
		Healthy:   err == nil,
		LastCheck: time.Now(),
		Latency:   time.Since(start),
	}
	if err != nil {
		status.Detail = err.Error()
		m.log.Warn().Err(err).Msg("provider health probe failed")
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	return status
}

// Status returns the last recorded probe result without probing.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Run refreshes on the given interval until the context is cancelled.
func (m *HealthMonitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}
