package components

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/bursar/internal/config"
	"github.com/harunnryd/bursar/internal/daemon"
	"github.com/harunnryd/bursar/internal/webhook"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerComponent exposes the observation surface: liveness, metrics,
// and the optional webhook receiver. It serves no approval data.
type HTTPServerComponent struct {
	daemon      *daemon.Daemon
	cfg         *config.Config
	pollerComp  *PollerComponent
	server      *http.Server
	shutdownTTL time.Duration
	initialized bool
	started     bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewHTTPServerComponent(d *daemon.Daemon, cfg *config.Config, pollerComp *PollerComponent) *HTTPServerComponent {
	return &HTTPServerComponent{
		daemon:     d,
		cfg:        cfg,
		pollerComp: pollerComp,
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return []string{"Poller"}
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	if h.cfg.Webhook.Enabled {
		if h.cfg.Webhook.Secret == "" {
			return fmt.Errorf("webhook enabled but no secret configured")
		}
		path := h.cfg.Webhook.Path
		if path == "" {
			path = config.DefaultWebhookPath
		}
		mux.Handle(path, webhook.NewHandler(h.cfg.Webhook.Secret, h.pollerComp.GetEngine()))
		slog.Info("Webhook receiver enabled", "component", h.Name(), "path", path)
	}

	readTimeout, err := config.DurationOrDefault(h.cfg.Server.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(h.cfg.Server.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(h.cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", h.cfg.Server.Port)
	return nil
}

func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	go func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", h.server.Addr)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	}()

	h.started = true
	h.startTime = time.Now()
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	h.started = false
	slog.Info("HTTPServer stopped", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !h.started {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    h.Name(),
		Healthy: true,
	}, nil
}

func (h *HTTPServerComponent) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	healthResponse := map[string]interface{}{
		"status": string(h.daemon.Health()),
		"uptime": h.daemon.Uptime().String(),
	}

	if engine := h.pollerComp.GetEngine(); engine != nil {
		lastCycle := engine.LastCycle()
		if !lastCycle.IsZero() {
			healthResponse["last_cycle"] = lastCycle.UTC().Format(time.RFC3339)
			healthResponse["last_cycle_age_seconds"] = int64(time.Since(lastCycle).Seconds())
		}
	}

	componentHealths := h.daemon.ComponentHealth()
	componentHealthMap := make(map[string]interface{})
	allHealthy := true
	for name, ch := range componentHealths {
		entry := map[string]interface{}{
			"healthy": ch.Healthy,
		}
		if ch.Error != nil {
			entry["error"] = ch.Error.Error()
		}
		componentHealthMap[name] = entry
		if !ch.Healthy {
			allHealthy = false
		}
	}
	healthResponse["components"] = componentHealthMap

	if !allHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(healthResponse)
}
