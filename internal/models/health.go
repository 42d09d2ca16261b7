// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package models

import "time"

// HealthStatus is the health check response.
type HealthStatus struct {
	Status            string     `json:"status"`
	Version           string     `json:"version"`
	DatabaseConnected bool       `json:"database_connected"`
	FeedState         string     `json:"feed_state"`
	Degraded          bool       `json:"degraded"`
	LastRecompute     *time.Time `json:"last_recompute,omitempty"`
	Uptime            float64    `json:"uptime_seconds"`
}
