// Package health exposes the controller's view of the device over HTTP.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sunwardhq/sunward/internal/presence"
)

// PresenceMonitor is the part of the presence tracker health depends on.
type PresenceMonitor interface {
	Subscribe() <-chan presence.State
	Unsubscribe(<-chan presence.State)
	Current() (presence.State, time.Time)
}

type Health struct {
	monitor PresenceMonitor
	logger  *slog.Logger
	status  status
	updated bool
	lock    sync.RWMutex
}

type status struct {
	Online bool      `json:"online"`
	Since  time.Time `json:"since,omitzero"`
}

func New(monitor PresenceMonitor, logger *slog.Logger) *Health {
	return &Health{
		monitor: monitor,
		logger:  logger,
	}
}

func (h *Health) Run(ctx context.Context) error {
	h.logger.Debug("started")
	defer h.logger.Debug("stopped")

	state, since := h.monitor.Current()
	h.set(state, since)

	ch := h.monitor.Subscribe()
	defer h.monitor.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case state = <-ch:
			h.set(state, time.Now())
		}
	}
}

func (h *Health) set(state presence.State, since time.Time) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.status = status{Online: state == presence.Online, Since: since}
	h.updated = true
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if !h.updated {
		http.Error(w, "no update yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(h.status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
