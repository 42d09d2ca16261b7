// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package stats

import (
	"testing"

	"github.com/google/uuid"

	"github.com/dakshaa-fest/pulse/internal/models"
)

func profileWithCollege(college string) models.Profile {
	return models.Profile{ID: uuid.New(), Role: "student", College: college}
}

func TestGroupCollegesMergesVariants(t *testing.T) {
	profiles := []models.Profile{
		profileWithCollege("K S Rangasamy College"),
		profileWithCollege("KS Rangasamy College"),
		profileWithCollege("K.S. RANGASAMY COLLEGE"),
		profileWithCollege("Government College of Technology"),
	}

	groups := GroupColleges(profiles, nil)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(groups), groups)
	}
	if groups[0].Count != 3 {
		t.Errorf("largest group count = %d, want 3", groups[0].Count)
	}
}

func TestGroupCollegesDisplayNameMostFrequent(t *testing.T) {
	profiles := []models.Profile{
		profileWithCollege("KS Rangasamy College"),
		profileWithCollege("K S Rangasamy College"),
		profileWithCollege("K S Rangasamy College"),
	}

	groups := GroupColleges(profiles, nil)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if got := groups[0].DisplayName; got != "K S RANGASAMY COLLEGE" {
		t.Errorf("DisplayName = %q, want most frequent spelling uppercased", got)
	}
}

// Equal spelling frequencies break to the lexicographically smallest
// spelling so repeated runs produce identical output.
func TestGroupCollegesDisplayNameTieBreak(t *testing.T) {
	profiles := []models.Profile{
		profileWithCollege("KS Rangasamy College"),
		profileWithCollege("K S Rangasamy College"),
	}

	groups := GroupColleges(profiles, nil)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if got := groups[0].DisplayName; got != "K S RANGASAMY COLLEGE" {
		t.Errorf("DisplayName = %q, want lexicographically smallest on tie", got)
	}
}

func TestGroupCollegesPaidCounts(t *testing.T) {
	paid := profileWithCollege("SNS College of Technology")
	unpaid := profileWithCollege("SNSCT")
	blank := profileWithCollege("")

	paidUsers := map[uuid.UUID]struct{}{paid.ID: {}}
	groups := GroupColleges([]models.Profile{paid, unpaid, blank}, paidUsers)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups (SNSCT merged, blank sentinel), got %d", len(groups))
	}

	var sns, sentinel *CollegeGroup
	for i := range groups {
		switch groups[i].Key {
		case "SNSCOLLEGEOFTECHNOLOGY":
			sns = &groups[i]
		case CollegeNotSpecified:
			sentinel = &groups[i]
		}
	}
	if sns == nil || sentinel == nil {
		t.Fatalf("missing expected groups: %+v", groups)
	}
	if sns.Count != 2 || sns.PaidCount != 1 {
		t.Errorf("SNS group = count %d paid %d, want 2/1", sns.Count, sns.PaidCount)
	}
	if sentinel.Count != 1 || sentinel.PaidCount != 0 {
		t.Errorf("sentinel group = count %d paid %d, want 1/0", sentinel.Count, sentinel.PaidCount)
	}
}

func TestPaidUserSet(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()
	regs := []models.Registration{
		{ID: uuid.New(), UserID: u1, PaymentStatus: "PAID"},
		{ID: uuid.New(), UserID: u1, PaymentStatus: "paid"},
		{ID: uuid.New(), UserID: u2, PaymentStatus: "PENDING"},
	}

	set := PaidUserSet(regs)
	if _, ok := set[u1]; !ok {
		t.Error("expected u1 in paid set")
	}
	if _, ok := set[u2]; ok {
		t.Error("did not expect u2 in paid set")
	}
	if len(set) != 1 {
		t.Errorf("len(set) = %d, want 1", len(set))
	}
}
