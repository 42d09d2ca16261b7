// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

/*
reconciler.go - Live Statistics Reconciler

This file implements the service that keeps the in-memory statistics
snapshot in step with the database. It combines two mechanisms:

- A change feed (LISTEN/NOTIFY) for incremental paid-registration deltas
- A periodic full recompute that corrects any drift the deltas cannot
  express (team restructuring, deletes, missed notifications)

The feed connection is retried forever with a delay that depends on how
it failed: a silent heartbeat timeout usually means a dropped socket and
reconnects quickly, a hard error backs off longer.
*/

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dakshaa-fest/pulse/internal/database"
	"github.com/dakshaa-fest/pulse/internal/logging"
	"github.com/dakshaa-fest/pulse/internal/metrics"
	"github.com/dakshaa-fest/pulse/internal/models"
	"github.com/dakshaa-fest/pulse/internal/stats"
)

// Fetcher supplies the full table reads a recompute needs.
// *database.Store satisfies it.
type Fetcher interface {
	Events(ctx context.Context) ([]models.Event, error)
	Registrations(ctx context.Context) ([]models.Registration, error)
	Teams(ctx context.Context) ([]models.Team, error)
	StudentProfiles(ctx context.Context) ([]models.Profile, error)
}

// ChangeFeed delivers row-change notifications until it fails or the
// context is cancelled. *database.Listener satisfies it.
type ChangeFeed interface {
	Run(ctx context.Context, handler func(models.ChangeEvent), onStatus func(database.SubscriptionStatus)) error
}

// Broadcaster receives every new snapshot for fan-out to clients.
type Broadcaster interface {
	Publish(stats.Snapshot)
}

// TeamSource is the fallback read path for team rows when the primary
// database fetch fails. *TeamCheckClient satisfies it.
type TeamSource interface {
	Teams(ctx context.Context) ([]models.Team, error)
}

// Config holds the reconciler timings.
type Config struct {
	// RecomputeInterval is the full-rebuild cadence.
	RecomputeInterval time.Duration `koanf:"recompute_interval"`
	// RetryError is the feed reconnect delay after a hard error.
	RetryError time.Duration `koanf:"retry_error"`
	// RetryTimeout is the feed reconnect delay after a heartbeat timeout.
	RetryTimeout time.Duration `koanf:"retry_timeout"`
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		RecomputeInterval: 120 * time.Second,
		RetryError:        5 * time.Second,
		RetryTimeout:      2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RecomputeInterval <= 0 {
		c.RecomputeInterval = d.RecomputeInterval
	}
	if c.RetryError <= 0 {
		c.RetryError = d.RetryError
	}
	if c.RetryTimeout <= 0 {
		c.RetryTimeout = d.RetryTimeout
	}
	return c
}

// Reconciler owns the current snapshot and keeps it current. It runs as
// a supervised service: Serve blocks until the context is cancelled.
type Reconciler struct {
	cfg      Config
	store    Fetcher
	feed     ChangeFeed
	fallback TeamSource
	hub      Broadcaster

	mu            sync.RWMutex
	snapshot      stats.Snapshot
	hasSnapshot   bool
	feedStatus    database.SubscriptionStatus
	lastRecompute time.Time

	// now is swapped in tests.
	now func() time.Time
}

// NewReconciler wires the reconciler. fallback and hub may be nil.
func NewReconciler(cfg Config, store Fetcher, feed ChangeFeed, fallback TeamSource, hub Broadcaster) *Reconciler {
	return &Reconciler{
		cfg:        cfg.withDefaults(),
		store:      store,
		feed:       feed,
		fallback:   fallback,
		hub:        hub,
		feedStatus: database.StatusConnecting,
		now:        time.Now,
	}
}

// String identifies the service in supervisor logs.
func (r *Reconciler) String() string {
	return "stats-reconciler"
}

// Serve runs the reconcile loop until ctx is cancelled. The initial
// recompute failing is not fatal: the interval ticker retries it and
// the service reports degraded until a snapshot exists.
func (r *Reconciler) Serve(ctx context.Context) error {
	if err := r.Refresh(ctx, "startup"); err != nil {
		logging.Error().Err(err).Msg("Initial statistics recompute failed")
	}

	changes := make(chan models.ChangeEvent, 256)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		r.feedLoop(ctx, changes)
	}()

	ticker := time.NewTicker(r.cfg.RecomputeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-feedDone
			return ctx.Err()
		case <-ticker.C:
			if err := r.Refresh(ctx, "interval"); err != nil {
				logging.Error().Err(err).Msg("Scheduled recompute failed")
			}
		case change := <-changes:
			if r.Apply(change) {
				if err := r.Refresh(ctx, "team_change"); err != nil {
					logging.Error().Err(err).Msg("Team change recompute failed")
				}
			}
		}
	}
}

// feedLoop keeps the change feed alive, reconnecting after every failure
// with a delay chosen by retryDelay.
func (r *Reconciler) feedLoop(ctx context.Context, changes chan<- models.ChangeEvent) {
	handler := func(c models.ChangeEvent) {
		select {
		case changes <- c:
		case <-ctx.Done():
		}
	}
	for {
		err := r.feed.Run(ctx, handler, r.setFeedStatus)
		if ctx.Err() != nil {
			return
		}
		delay, reason := retryDelay(r.cfg, err)
		metrics.FeedRetries.WithLabelValues(reason).Inc()
		logging.Warn().Err(err).Str("reason", reason).Dur("retry_in", delay).Msg("Change feed lost, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// retryDelay maps a feed failure to its reconnect delay. Heartbeat
// timeouts reconnect faster than hard errors.
func retryDelay(cfg Config, err error) (time.Duration, string) {
	if errors.Is(err, database.ErrFeedTimeout) {
		return cfg.RetryTimeout, "timeout"
	}
	return cfg.RetryError, "error"
}

// Refresh rebuilds the snapshot from full table reads and publishes it.
// A failed events/registrations/profiles read aborts and keeps the
// previous snapshot; a failed team read degrades instead of aborting.
func (r *Reconciler) Refresh(ctx context.Context, trigger string) error {
	start := time.Now()

	in, err := r.collect(ctx)
	if err != nil {
		return fmt.Errorf("collect statistics input: %w", err)
	}

	snap := stats.Recompute(in)
	metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	metrics.RecomputeTotal.WithLabelValues(trigger).Inc()

	r.publish(snap, true)
	logging.Info().
		Str("trigger", trigger).
		Int("total_participants", snap.TotalParticipants).
		Bool("degraded", snap.Degraded).
		Dur("elapsed", time.Since(start)).
		Msg("Statistics recomputed")
	return nil
}

// collect assembles the recompute input. Team rows come from the
// database first and fall back to the cross-check endpoint.
func (r *Reconciler) collect(ctx context.Context) (stats.Input, error) {
	events, err := r.store.Events(ctx)
	if err != nil {
		return stats.Input{}, err
	}
	regs, err := r.store.Registrations(ctx)
	if err != nil {
		return stats.Input{}, err
	}
	profiles, err := r.store.StudentProfiles(ctx)
	if err != nil {
		return stats.Input{}, err
	}

	in := stats.Input{
		Events:        events,
		Registrations: regs,
		Profiles:      profiles,
		Now:           r.now(),
	}

	teams, err := r.store.Teams(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Team fetch failed, trying fallback source")
		teams = nil
		in.TeamsUnavailable = true
		if r.fallback != nil {
			if fbTeams, fbErr := r.fallback.Teams(ctx); fbErr == nil {
				teams = fbTeams
				in.TeamsUnavailable = false
			} else {
				logging.Warn().Err(fbErr).Msg("Fallback team source failed, serving degraded totals")
			}
		}
	}
	in.Teams = teams
	return in, nil
}

// Apply merges one change notification into the snapshot. It returns
// true when the change needs a full recompute instead.
func (r *Reconciler) Apply(change models.ChangeEvent) bool {
	r.mu.Lock()
	if !r.hasSnapshot {
		r.mu.Unlock()
		// No baseline to patch yet; a recompute builds one.
		return true
	}
	snap, res := stats.ApplyDelta(r.snapshot, change)
	if res == stats.DeltaApplied {
		r.snapshot = snap
	}
	r.mu.Unlock()

	switch res {
	case stats.DeltaApplied:
		metrics.DeltasApplied.WithLabelValues("applied").Inc()
		metrics.TotalParticipants.Set(float64(snap.TotalParticipants))
		if r.hub != nil {
			r.hub.Publish(snap)
		}
		logging.Debug().Str("table", change.Table).Str("op", change.Op).Msg("Delta applied")
		return false
	case stats.DeltaRecompute:
		metrics.DeltasApplied.WithLabelValues("recompute").Inc()
		return true
	default:
		metrics.DeltasApplied.WithLabelValues("ignored").Inc()
		return false
	}
}

// publish swaps in a new snapshot and fans it out.
func (r *Reconciler) publish(snap stats.Snapshot, fullRecompute bool) {
	r.mu.Lock()
	r.snapshot = snap
	r.hasSnapshot = true
	if fullRecompute {
		r.lastRecompute = snap.ComputedAt
	}
	r.mu.Unlock()

	metrics.TotalParticipants.Set(float64(snap.TotalParticipants))
	if snap.Degraded {
		metrics.DegradedMode.Set(1)
	} else {
		metrics.DegradedMode.Set(0)
	}
	if r.hub != nil {
		r.hub.Publish(snap)
	}
}

func (r *Reconciler) setFeedStatus(s database.SubscriptionStatus) {
	r.mu.Lock()
	r.feedStatus = s
	r.mu.Unlock()
	metrics.SetFeedState(string(s))
}

// Snapshot returns the current aggregate. ok is false before the first
// successful recompute.
func (r *Reconciler) Snapshot() (stats.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot, r.hasSnapshot
}

// FeedStatus returns the change feed lifecycle state for health checks.
func (r *Reconciler) FeedStatus() database.SubscriptionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feedStatus
}

// LastRecompute returns when the last full rebuild finished, or zero.
func (r *Reconciler) LastRecompute() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRecompute
}
