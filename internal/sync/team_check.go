// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/dakshaa-fest/pulse/internal/logging"
	"github.com/dakshaa-fest/pulse/internal/metrics"
	"github.com/dakshaa-fest/pulse/internal/models"
)

// TeamCheckClient reads team rows from the registration backend's HTTP
// API. It is the fallback source when the direct database read fails,
// wrapped in a circuit breaker so a struggling backend is not hammered
// on every recompute.
//
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
type TeamCheckClient struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]models.Team]
}

// NewTeamCheckClient builds a client for the given teams endpoint URL.
func NewTeamCheckClient(url string) *TeamCheckClient {
	metrics.BreakerState.Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]models.Team](gobreaker.Settings{
		Name:        "team-check",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", from.String()).Str("to", to.String()).Msg("[team-check] Breaker state transition")
			metrics.BreakerState.Set(breakerStateValue(to))
		},
	})

	return &TeamCheckClient{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		cb: cb,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// Teams fetches the current team rows, or an error when the endpoint
// fails or the breaker is open.
func (c *TeamCheckClient) Teams(ctx context.Context) ([]models.Team, error) {
	teams, err := c.cb.Execute(func() ([]models.Team, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("team check rejected: %w", err)
		}
		return nil, err
	}
	return teams, nil
}

func (c *TeamCheckClient) fetch(ctx context.Context) ([]models.Team, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build team check request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("team check request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("team check status %d", resp.StatusCode)
	}

	var teams []models.Team
	if err := json.NewDecoder(resp.Body).Decode(&teams); err != nil {
		return nil, fmt.Errorf("decode team check response: %w", err)
	}
	return teams, nil
}
