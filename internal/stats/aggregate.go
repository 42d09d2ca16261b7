// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package stats

import (
	"github.com/dakshaa-fest/pulse/internal/models"
)

// TeamParticipantStats summarizes team-based paid participation.
type TeamParticipantStats struct {
	ActiveTeamCount  int `json:"active_team_count"`
	TotalPaidMembers int `json:"total_paid_members"`
	ExtraPaidMembers int `json:"extra_paid_members"`
}

// ComputeTeamStats derives team participation from the full team set.
// Each active team's leader is already present in the base paid count,
// so one slot per active team is subtracted; the clamp at zero absorbs
// teams recorded active with no paid members yet.
func ComputeTeamStats(teams []models.Team) TeamParticipantStats {
	var s TeamParticipantStats
	for _, t := range teams {
		if !t.Active {
			continue
		}
		s.ActiveTeamCount++
		s.TotalPaidMembers += t.PaidMembers
	}
	s.ExtraPaidMembers = s.TotalPaidMembers - s.ActiveTeamCount
	if s.ExtraPaidMembers < 0 {
		s.ExtraPaidMembers = 0
	}
	return s
}
