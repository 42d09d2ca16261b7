// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dakshaa-fest/pulse/internal/database"
	"github.com/dakshaa-fest/pulse/internal/models"
	"github.com/dakshaa-fest/pulse/internal/stats"
)

// SnapshotSource is the reconciler surface the handlers read from.
type SnapshotSource interface {
	Snapshot() (stats.Snapshot, bool)
	FeedStatus() database.SubscriptionStatus
	LastRecompute() time.Time
}

// Pinger reports database connectivity for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the statistics endpoints.
type Handler struct {
	stats   SnapshotSource
	db      Pinger
	version string
	started time.Time
}

// NewHandler wires a handler. db may be nil in tests.
func NewHandler(source SnapshotSource, db Pinger, version string) *Handler {
	return &Handler{
		stats:   source,
		db:      db,
		version: version,
		started: time.Now(),
	}
}

// Live returns the full current snapshot.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, ok := h.stats.Snapshot()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, ErrCodeNotReady,
			"statistics are still warming up", nil)
		return
	}
	respondData(w, snap, start)
}

// OnSpot returns the current-day registration window.
func (h *Handler) OnSpot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, ok := h.stats.Snapshot()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, ErrCodeNotReady,
			"statistics are still warming up", nil)
		return
	}
	respondData(w, snap.OnSpot, start)
}

// Colleges returns the grouped college tallies, as JSON by default or
// as a CSV download with ?format=csv.
func (h *Handler) Colleges(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, ok := h.stats.Snapshot()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, ErrCodeNotReady,
			"statistics are still warming up", nil)
		return
	}

	colleges := snap.Colleges
	if limit := getIntParam(r, "limit", 0); limit > 0 && limit < len(colleges) {
		colleges = colleges[:limit]
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		respondData(w, colleges, start)
	case "csv":
		h.writeCollegesCSV(w, colleges)
	default:
		respondError(w, http.StatusBadRequest, ErrCodeInvalidParam,
			fmt.Sprintf("unsupported format %q", sanitizeLogValue(format)), nil)
	}
}

func (h *Handler) writeCollegesCSV(w http.ResponseWriter, colleges []stats.CollegeGroup) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=colleges-%s.csv", time.Now().UTC().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	record := []string{"college", "registrations", "paid"}
	if err := cw.Write(record); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeExportFailed, "csv export failed", err)
		return
	}
	for _, c := range colleges {
		record[0] = c.DisplayName
		record[1] = strconv.Itoa(c.Count)
		record[2] = strconv.Itoa(c.PaidCount)
		if err := cw.Write(record); err != nil {
			respondError(w, http.StatusInternalServerError, ErrCodeExportFailed, "csv export failed", err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeExportFailed, "csv export failed", err)
	}
}

// Health reports overall service health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbConnected := h.pingDB(r.Context())
	snap, hasSnapshot := h.stats.Snapshot()
	feedState := string(h.stats.FeedStatus())

	status := "ok"
	degraded := hasSnapshot && snap.Degraded
	if !dbConnected || !hasSnapshot || degraded {
		status = "degraded"
	}

	health := models.HealthStatus{
		Status:            status,
		Version:           h.version,
		DatabaseConnected: dbConnected,
		FeedState:         feedState,
		Degraded:          degraded,
		Uptime:            time.Since(h.started).Seconds(),
	}
	if last := h.stats.LastRecompute(); !last.IsZero() {
		health.LastRecompute = &last
	}
	respondData(w, health, start)
}

// HealthLive is the liveness probe. It answers as long as the process
// can serve HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady is the readiness probe: 200 once a snapshot exists and
// the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.stats.Snapshot(); !ok {
		respondError(w, http.StatusServiceUnavailable, ErrCodeNotReady, "no snapshot yet", nil)
		return
	}
	if !h.pingDB(r.Context()) {
		respondError(w, http.StatusServiceUnavailable, ErrCodeNotReady, "database unreachable", nil)
		return
	}
	respondData(w, map[string]string{"status": "ready"}, time.Now())
}

func (h *Handler) pingDB(ctx context.Context) bool {
	if h.db == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.db.Ping(pingCtx) == nil
}
