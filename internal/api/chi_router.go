// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

// Package api provides HTTP routing and handlers for the statistics
// endpoints, built on the chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP surface.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	wsHandler     http.HandlerFunc
}

// NewRouter wires the router. wsHandler may be nil to disable /ws.
func NewRouter(handler *Handler, mw *ChiMiddleware, wsHandler http.HandlerFunc) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		wsHandler:     wsHandler,
	}
}

// SetupChi configures all routes and returns the root handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global stack, applied to every route in order. CORS is global so
	// OPTIONS preflights are handled before anything else.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1/stats", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())
		r.Get("/live", router.handler.Live)
		r.Get("/colleges", router.handler.Colleges)
		r.Get("/onspot", router.handler.OnSpot)
	})

	if router.wsHandler != nil {
		r.Get("/ws", router.wsHandler)
	}

	r.Handle("/metrics", promhttp.Handler())

	return r
}
