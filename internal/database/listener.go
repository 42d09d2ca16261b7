// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/dakshaa-fest/pulse/internal/logging"
	"github.com/dakshaa-fest/pulse/internal/metrics"
	"github.com/dakshaa-fest/pulse/internal/models"
)

// SubscriptionStatus is the lifecycle state of the change feed.
type SubscriptionStatus string

const (
	StatusConnecting SubscriptionStatus = "connecting"
	StatusSubscribed SubscriptionStatus = "subscribed"
	StatusError      SubscriptionStatus = "error"
	StatusTimedOut   SubscriptionStatus = "timed_out"
	StatusClosed     SubscriptionStatus = "closed"
)

// ErrFeedTimeout marks a heartbeat failure: the connection went silent
// and did not answer a ping.
var ErrFeedTimeout = errors.New("change feed heartbeat timed out")

// Listener consumes row-change notifications published by the database
// triggers on the notify channel. It holds a dedicated connection
// outside the pool because LISTEN binds to a session.
type Listener struct {
	url       string
	channel   string
	heartbeat time.Duration
}

// NewListener builds a listener from the database config.
func NewListener(cfg Config) *Listener {
	channel := cfg.NotifyChannel
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	return &Listener{
		url:       cfg.URL,
		channel:   channel,
		heartbeat: 30 * time.Second,
	}
}

// Run connects, subscribes, and delivers decoded change events to handler
// until ctx is cancelled or the connection fails. Status transitions are
// reported through onStatus. The return distinguishes the failure modes
// the caller retries differently: ctx.Err() on shutdown, ErrFeedTimeout
// on a dead-silent connection, any other error on connect/subscribe
// failure.
func (l *Listener) Run(ctx context.Context, handler func(models.ChangeEvent), onStatus func(SubscriptionStatus)) error {
	onStatus(StatusConnecting)

	conn, err := pgx.Connect(ctx, l.url)
	if err != nil {
		onStatus(StatusError)
		return fmt.Errorf("connect change feed: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		onStatus(StatusError)
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	onStatus(StatusSubscribed)
	logging.Info().Str("channel", l.channel).Msg("Change feed subscribed")

	for {
		// Bound each wait by the heartbeat interval so a wedged
		// connection is noticed even when no rows change.
		waitCtx, cancel := context.WithTimeout(ctx, l.heartbeat)
		notification, err := conn.WaitForNotification(waitCtx)
		cancel()

		switch {
		case ctx.Err() != nil:
			onStatus(StatusClosed)
			return ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			pingErr := conn.Ping(pingCtx)
			pingCancel()
			if pingErr != nil {
				onStatus(StatusTimedOut)
				return ErrFeedTimeout
			}
			continue
		case err != nil:
			onStatus(StatusError)
			return fmt.Errorf("wait for notification: %w", err)
		}

		var change models.ChangeEvent
		if err := json.Unmarshal([]byte(notification.Payload), &change); err != nil {
			logging.Warn().Err(err).
				Str("payload", notification.Payload).
				Msg("Undecodable change payload dropped")
			continue
		}
		metrics.FeedNotifications.WithLabelValues(change.Table, change.Op).Inc()
		handler(change)
	}
}
