// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phamanh/verano/internal/platform/respond"
)

// probeTimeout bounds each dependency check so a hung backend cannot stall
// the readiness endpoint past the orchestrator's probe deadline.
const probeTimeout = 2 * time.Second

// Probe is one named backend dependency the readiness endpoint verifies.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthHandler struct {
	probes []Probe
	logger *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
// Liveness always answers ok; readiness runs every probe and degrades to
// 503 when any backend is unreachable.
func NewHealthHandlers(logger *slog.Logger, probes ...Probe) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{probes: probes, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health. Probes read the envelope-free body, so the
// health endpoints skip the {"data": ...} wrapper the API uses elsewhere.
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.JSON(writer, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness handles GET /ready.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	type probeResult struct {
		Name      string `json:"name"`
		IsOK      bool   `json:"ok"`
		LatencyMS int64  `json:"latencyMs"`
		Error     string `json:"error,omitempty"`
	}

	results := make([]probeResult, 0, len(handler.probes))
	ready := true

	for _, probe := range handler.probes {
		probeCtx, cancel := context.WithTimeout(request.Context(), probeTimeout)
		started := time.Now()
		err := probe.Check(probeCtx)
		cancel()

		result := probeResult{
			Name:      probe.Name,
			IsOK:      err == nil,
			LatencyMS: time.Since(started).Milliseconds(),
		}
		if err != nil {
			result.Error = err.Error()
			ready = false
			handler.logger.Error("readiness_check_failed",
				slog.String("dependency", probe.Name),
				slog.Any("error", err),
			)
		}
		results = append(results, result)
	}

	status, httpStatus := "ready", http.StatusOK
	if !ready {
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, map[string]any{
		"status": status,
		"checks": results,
	})
}
