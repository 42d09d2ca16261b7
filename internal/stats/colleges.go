// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package stats

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dakshaa-fest/pulse/internal/models"
)

// CollegeGroup is one row of the college-wise statistics view.
type CollegeGroup struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"name"`
	Count       int      `json:"count"`
	PaidCount   int      `json:"paid_count"`
	Variations  []string `json:"variations,omitempty"`
}

// maxVariations caps the spelling samples carried per group.
const maxVariations = 5

// GroupColleges buckets profiles by normalized college name. The display
// name of a group is the most frequent original spelling, uppercased;
// frequency ties break to the lexicographically smallest spelling so the
// output is deterministic. Groups sort by count descending, then name.
func GroupColleges(profiles []models.Profile, paidUsers map[uuid.UUID]struct{}) []CollegeGroup {
	type tally struct {
		count     int
		paidCount int
		spellings map[string]int
	}

	groups := make(map[string]*tally)
	for _, p := range profiles {
		key := NormalizeCollege(p.College)
		t := groups[key]
		if t == nil {
			t = &tally{spellings: make(map[string]int)}
			groups[key] = t
		}
		t.count++
		if raw := strings.TrimSpace(p.College); raw != "" {
			t.spellings[raw]++
		}
		if _, ok := paidUsers[p.ID]; ok {
			t.paidCount++
		}
	}

	out := make([]CollegeGroup, 0, len(groups))
	for key, t := range groups {
		display := key
		best := 0
		for spelling, n := range t.spellings {
			switch {
			case n > best:
				best = n
				display = strings.ToUpper(spelling)
			case n == best && strings.ToUpper(spelling) < display:
				display = strings.ToUpper(spelling)
			}
		}

		variations := make([]string, 0, len(t.spellings))
		for spelling := range t.spellings {
			variations = append(variations, spelling)
		}
		sort.Strings(variations)
		if len(variations) > maxVariations {
			variations = variations[:maxVariations]
		}

		out = append(out, CollegeGroup{
			Key:         key,
			DisplayName: display,
			Count:       t.count,
			PaidCount:   t.paidCount,
			Variations:  variations,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

// PaidUserSet collects the user IDs holding at least one paid
// registration.
func PaidUserSet(regs []models.Registration) map[uuid.UUID]struct{} {
	paid := make(map[uuid.UUID]struct{})
	for _, r := range regs {
		if r.IsPaid() {
			paid[r.UserID] = struct{}{}
		}
	}
	return paid
}
