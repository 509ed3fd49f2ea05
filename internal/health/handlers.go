package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/toko-promo/internal/common"
)

// Probe pings one dependency. The context carries the per-probe deadline.
type Probe func(ctx context.Context) error

const defaultProbeTimeout = 500 * time.Millisecond

var draining atomic.Bool

// SetReady toggles readiness. The API clears it when shutdown begins so the
// load balancer stops routing resolve requests before the pool drains.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	Probes  map[string]Probe
	Timeout time.Duration
}

func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and answers 200 only when all pass.
// The body maps each probe name to "ok" or its error.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	if len(h.Probes) == 0 {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no probes configured"})
		return
	}

	status, healthy := h.check(r.Context())
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func (h Handler) check(ctx context.Context) (map[string]string, bool) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	var (
		mu      sync.Mutex
		status  = make(map[string]string, len(h.Probes))
		healthy = true
		g       errgroup.Group
	)
	for name, probe := range h.Probes {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			result := "ok"
			if err := probe(probeCtx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			status[name] = result
			if result != "ok" {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()
	return status, healthy
}
