// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package database

import (
	"context"
	"fmt"

	"github.com/dakshaa-fest/pulse/internal/models"
)

// Store runs the read queries that feed the aggregation core.
type Store struct {
	db *DB
}

// NewStore wraps a connected database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Events returns every event row.
func (s *Store) Events(ctx context.Context) ([]models.Event, error) {
	events, err := FetchAll[models.Event](ctx, s.db.Pool, "events",
		[]string{"id", "name", "category", "capacity", "is_team", "created_at"},
		FetchOptions{OrderBy: "id"})
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	return events, nil
}

// Registrations returns every registration row, oldest first.
func (s *Store) Registrations(ctx context.Context) ([]models.Registration, error) {
	regs, err := FetchAll[models.Registration](ctx, s.db.Pool, "registrations",
		[]string{"id", "event_id", "user_id", "payment_status", "created_at"},
		FetchOptions{OrderBy: "created_at"})
	if err != nil {
		return nil, fmt.Errorf("fetch registrations: %w", err)
	}
	return regs, nil
}

// Teams returns every team row.
func (s *Store) Teams(ctx context.Context) ([]models.Team, error) {
	teams, err := FetchAll[models.Team](ctx, s.db.Pool, "teams",
		[]string{"id", "event_id", "leader_id", "active", "paid_members", "created_at"},
		FetchOptions{OrderBy: "created_at"})
	if err != nil {
		return nil, fmt.Errorf("fetch teams: %w", err)
	}
	return teams, nil
}

// StudentProfiles returns every student profile row.
func (s *Store) StudentProfiles(ctx context.Context) ([]models.Profile, error) {
	profiles, err := FetchAll[models.Profile](ctx, s.db.Pool, "profiles",
		[]string{"id", "role", "name", "college", "created_at"},
		FetchOptions{Filters: map[string]any{"role": models.RoleStudent}})
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	return profiles, nil
}
