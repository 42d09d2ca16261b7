// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

// Package models defines the domain types shared across Pulse: the
// registration tables as stored in Postgres and the payloads carried on
// the change feed.
package models

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// PaymentStatusPaid is the canonical paid marker. Comparisons are
// case-insensitive because upstream writers have historically stored
// "paid", "PAID" and "Paid".
const PaymentStatusPaid = "paid"

// Event is a festival event as registered in the events table.
// IDs are human-readable slugs such as "cse-aiml-codeathon" or
// "conference-event-robotics". Category is free text entered by admins
// and inconsistently cased; classification normalizes it.
type Event struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	Capacity  int       `json:"capacity" db:"capacity"`
	IsTeam    bool      `json:"is_team" db:"is_team"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Registration links a participant profile to an event.
type Registration struct {
	ID            uuid.UUID `json:"id" db:"id"`
	EventID       string    `json:"event_id" db:"event_id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	PaymentStatus string    `json:"payment_status" db:"payment_status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// IsPaid reports whether the registration counts as paid.
func (r Registration) IsPaid() bool {
	return strings.EqualFold(r.PaymentStatus, PaymentStatusPaid)
}

// Team is a group registration. Active and payment are orthogonal flags:
// a team can be active with zero paid members during creation races.
// PaidMembers is a denormalized counter maintained by the payment flow.
type Team struct {
	ID          uuid.UUID `json:"id" db:"id"`
	EventID     string    `json:"event_id" db:"event_id"`
	LeaderID    uuid.UUID `json:"leader_id" db:"leader_id"`
	Active      bool      `json:"active" db:"active"`
	PaidMembers int       `json:"paid_members" db:"paid_members"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Profile is a participant account. College is free text as typed at
// signup; normalization happens in the stats layer.
type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Role      string    `json:"role" db:"role"`
	Name      string    `json:"name" db:"name"`
	College   string    `json:"college" db:"college"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RoleStudent is the profile role counted in participant statistics.
const RoleStudent = "student"

// Change feed tables and operations as emitted by the notify triggers.
const (
	TableRegistrations = "registrations"
	TableTeams         = "teams"
	TableTeamMembers   = "team_members"

	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// ChangeEvent is one row change delivered over the pulse_changes channel.
// Old and New are kept raw because the payload shape depends on Table;
// use DecodeRegistration for registration rows.
type ChangeEvent struct {
	Table string          `json:"table"`
	Op    string          `json:"op"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
}

// DecodeRegistration decodes a raw change payload as a registration row.
// Returns nil for an absent payload (INSERT has no old, DELETE no new).
func DecodeRegistration(raw json.RawMessage) (*Registration, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var reg Registration
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}
