// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

//go:build integration

package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dakshaa-fest/pulse/internal/models"
	"github.com/dakshaa-fest/pulse/internal/testinfra"
)

func setupDB(t *testing.T) (*DB, Config) {
	t.Helper()
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	pg := testinfra.StartPostgres(ctx, t)

	if err := RunMigrations(pg.URL); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	cfg := Config{URL: pg.URL}
	db, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	return db, cfg
}

// 2500 rows at page size 1000 must come back complete from 3 pages, and
// a table of exactly 1000 rows must not stop prematurely at the page
// boundary.
func TestFetchAllPaginationCompleteness(t *testing.T) {
	db, _ := setupDB(t)
	ctx := context.Background()

	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO events (id, name, category)
		 SELECT 'evt-' || n, 'Event ' || n, 'technical' FROM generate_series(1, 2500) n`); err != nil {
		t.Fatalf("seed events: %v", err)
	}

	events, err := FetchAll[models.Event](ctx, db.Pool, "events",
		[]string{"id", "name", "category", "capacity", "is_team", "created_at"},
		FetchOptions{OrderBy: "id"})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(events) != 2500 {
		t.Errorf("fetched %d events, want 2500", len(events))
	}

	// Exactly one page worth of profiles.
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO profiles (role, name, college)
		 SELECT 'student', 'Student ' || n, 'GCT' FROM generate_series(1, 1000) n`); err != nil {
		t.Fatalf("seed profiles: %v", err)
	}
	profiles, err := FetchAll[models.Profile](ctx, db.Pool, "profiles",
		[]string{"id", "role", "name", "college", "created_at"},
		FetchOptions{})
	if err != nil {
		t.Fatalf("FetchAll profiles: %v", err)
	}
	if len(profiles) != 1000 {
		t.Errorf("fetched %d profiles, want 1000", len(profiles))
	}
}

func TestStoreFilters(t *testing.T) {
	db, _ := setupDB(t)
	ctx := context.Background()
	store := NewStore(db)

	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO profiles (role, name, college) VALUES
		 ('student', 'A', 'GCT'), ('student', 'B', 'CIT'), ('admin', 'C', 'GCT')`); err != nil {
		t.Fatalf("seed profiles: %v", err)
	}

	profiles, err := store.StudentProfiles(ctx)
	if err != nil {
		t.Fatalf("StudentProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Errorf("got %d student profiles, want 2", len(profiles))
	}
}

func TestStoreTeamReads(t *testing.T) {
	db, _ := setupDB(t)
	ctx := context.Background()
	store := NewStore(db)

	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO events (id, name, category, is_team) VALUES ('cse-hackathon', 'Hackathon', 'technical', TRUE)`); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	var leaderID string
	if err := db.Pool.QueryRow(ctx,
		`INSERT INTO profiles (role, name, college) VALUES ('student', 'Lead', 'GCT') RETURNING id`).
		Scan(&leaderID); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO teams (event_id, leader_id, active, paid_members) VALUES ('cse-hackathon', $1, TRUE, 3)`,
		leaderID); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	teams, err := store.Teams(ctx)
	if err != nil {
		t.Fatalf("Teams: %v", err)
	}
	if len(teams) != 1 || teams[0].PaidMembers != 3 || !teams[0].Active {
		t.Errorf("teams = %+v, want one active team with 3 paid members", teams)
	}
}

// A payment-status update must arrive on the change feed with old and
// new row images.
func TestListenerDeliversPaidTransition(t *testing.T) {
	db, cfg := setupDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO events (id, name, category) VALUES ('cse-debugging', 'Debug Duel', 'technical')`); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	var userID, regID string
	if err := db.Pool.QueryRow(ctx,
		`INSERT INTO profiles (role, name, college) VALUES ('student', 'A', 'GCT') RETURNING id`).
		Scan(&userID); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := db.Pool.QueryRow(ctx,
		`INSERT INTO registrations (event_id, user_id, payment_status) VALUES ('cse-debugging', $1, 'PENDING') RETURNING id`,
		userID).Scan(&regID); err != nil {
		t.Fatalf("seed registration: %v", err)
	}

	changes := make(chan models.ChangeEvent, 16)
	statuses := make(chan SubscriptionStatus, 16)
	listener := NewListener(cfg)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = listener.Run(ctx,
			func(c models.ChangeEvent) { changes <- c },
			func(s SubscriptionStatus) { statuses <- s })
	}()

	waitForStatus(t, statuses, StatusSubscribed, 10*time.Second)

	if _, err := db.Pool.Exec(ctx,
		`UPDATE registrations SET payment_status = 'PAID' WHERE id = $1`, regID); err != nil {
		t.Fatalf("update registration: %v", err)
	}

	select {
	case change := <-changes:
		if change.Table != models.TableRegistrations || change.Op != models.OpUpdate {
			t.Errorf("change = %s/%s, want registrations/UPDATE", change.Table, change.Op)
		}
		oldReg, err := models.DecodeRegistration(change.Old)
		if err != nil || oldReg == nil || oldReg.IsPaid() {
			t.Errorf("old row = %+v (err %v), want unpaid registration", oldReg, err)
		}
		newReg, err := models.DecodeRegistration(change.New)
		if err != nil || newReg == nil || !newReg.IsPaid() {
			t.Errorf("new row = %+v (err %v), want paid registration", newReg, err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no change notification within 10s")
	}

	cancel()
	wg.Wait()
}

func waitForStatus(t *testing.T, ch <-chan SubscriptionStatus, want SubscriptionStatus, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("status %s not reached within %v", want, timeout)
		}
	}
}
