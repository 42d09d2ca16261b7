// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dakshaa-fest/pulse/internal/models"
)

// ist is the festival's local zone; "today" windows are IST days.
var ist = time.FixedZone("IST", 5*3600+30*60)

// TodayRange returns the UTC bounds [start, end) of the IST day containing
// now.
func TodayRange(now time.Time) (time.Time, time.Time) {
	local := now.In(ist)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, ist)
	return start.UTC(), start.Add(24 * time.Hour).UTC()
}

// Input is one full authoritative fetch of the tables feeding a snapshot.
type Input struct {
	Events        []models.Event
	Registrations []models.Registration
	Teams         []models.Team
	Profiles      []models.Profile

	// TeamsUnavailable marks the team fetch as failed. Totals degrade to
	// the base paid count instead of failing the whole snapshot.
	TeamsUnavailable bool

	Now time.Time
}

// CategoryCount is one category bucket tally.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// EventCount is a per-event tally inside a category drill-down.
type EventCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DeptCount is a per-department tally.
type DeptCount struct {
	Dept  string `json:"dept"`
	Count int    `json:"count"`
}

// ConferenceCount is a per-conference tally within the Conference bucket.
type ConferenceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SpecialBaseStats rolls presentation events up by base, split by the
// department read from the event name.
type SpecialBaseStats struct {
	Base    string      `json:"base"`
	Count   int         `json:"count"`
	Details []DeptCount `json:"details"`
}

// OnSpotStats covers the current IST day only: roll-ups plus the same
// per-event and special-base drill-downs the all-time view carries,
// restricted to registrations created inside the window.
type OnSpotStats struct {
	WindowStart       time.Time                 `json:"window_start"`
	WindowEnd         time.Time                 `json:"window_end"`
	NewProfiles       int                       `json:"new_profiles"`
	PaidRegistrations int                       `json:"paid_registrations"`
	Categories        []CategoryCount           `json:"categories"`
	CategoryEvents    map[Category][]EventCount `json:"category_events,omitempty"`
	Departments       []DeptCount               `json:"departments"`
	SpecialBases      []SpecialBaseStats        `json:"special_bases,omitempty"`
}

// Snapshot is the complete in-memory aggregate served to clients. Values
// are treated as immutable: Recompute builds a fresh one and ApplyDelta
// returns a patched copy, so readers never observe a half-updated view.
type Snapshot struct {
	ComputedAt time.Time `json:"computed_at"`
	Degraded   bool      `json:"degraded"`

	Students          int                  `json:"students"`
	BasePaid          int                  `json:"base_paid"`
	Team              TeamParticipantStats `json:"team"`
	TotalParticipants int                  `json:"total_participants"`

	Categories     []CategoryCount            `json:"categories"`
	CategoryEvents map[Category][]EventCount  `json:"category_events,omitempty"`
	Departments    []DeptCount                `json:"departments"`
	Conferences    []ConferenceCount          `json:"conferences,omitempty"`
	SpecialBases   []SpecialBaseStats         `json:"special_bases,omitempty"`
	Colleges       []CollegeGroup             `json:"colleges"`
	OnSpot         OnSpotStats                `json:"onspot"`

	// paidRegs records registration IDs already counted, which is what
	// makes duplicate delta delivery a no-op.
	paidRegs  map[uuid.UUID]struct{}
	eventMeta map[string]eventMeta
}

// eventMeta is the precomputed classification of one event.
type eventMeta struct {
	name       string
	category   Category
	hasCat     bool
	dept       string
	hasDept    bool
	conference string
	hasConf    bool
	base       string
	hasBase    bool
	baseDept   string
	techOK     bool
}

func classifyEvent(e models.Event) eventMeta {
	m := eventMeta{name: e.Name}
	m.category, m.hasCat = ClassifyCategory(e.Category)
	m.dept, m.hasDept = DeptFromID(e.ID)
	m.conference, m.hasConf = ConferenceNameFromID(e.ID)
	if m.hasConf {
		// Conference events are grouped by conference name, never by
		// keyword department.
		m.dept, m.hasDept = "", false
	}
	m.base, m.hasBase = SpecialBaseFromEventName(e.Name)
	if m.hasBase {
		if d, ok := DeptFromEventName(e.Name); ok {
			m.baseDept = d
		} else if m.hasDept {
			m.baseDept = m.dept
		} else {
			m.baseDept = "OTHER"
		}
	}
	m.techOK = m.category == CategoryTech && IsAllowedTechEvent(e.Name)
	return m
}

// countsInCategory reports whether a paid registration for this event
// increments its category bucket. Workshops are skipped outright and
// Tech only counts whitelisted events.
func (m eventMeta) countsInCategory() bool {
	if !m.hasCat || m.category == CategoryWorkshop {
		return false
	}
	if m.category == CategoryTech {
		return m.techOK
	}
	return true
}

// Recompute builds a snapshot from scratch. Pure: the input is not
// mutated and the result shares no state with previous snapshots.
func Recompute(in Input) Snapshot {
	meta := make(map[string]eventMeta, len(in.Events))
	for _, e := range in.Events {
		meta[e.ID] = classifyEvent(e)
	}

	todayStart, todayEnd := TodayRange(in.Now)

	s := Snapshot{
		ComputedAt: in.Now,
		paidRegs:   make(map[uuid.UUID]struct{}),
		eventMeta:  meta,
		OnSpot: OnSpotStats{
			WindowStart: todayStart,
			WindowEnd:   todayEnd,
		},
	}

	catCounts := make(map[Category]int)
	catToday := make(map[Category]int)
	catEvents := make(map[Category]map[string]*EventCount)
	catEventsToday := make(map[Category]map[string]*EventCount)
	deptCounts := make(map[string]int)
	deptToday := make(map[string]int)
	confCounts := make(map[string]int)
	baseCounts := make(map[string]map[string]int)
	baseToday := make(map[string]map[string]int)

	for _, r := range in.Registrations {
		if !r.IsPaid() {
			continue
		}
		s.paidRegs[r.ID] = struct{}{}
		s.BasePaid++

		today := !r.CreatedAt.Before(todayStart) && r.CreatedAt.Before(todayEnd)
		if today {
			s.OnSpot.PaidRegistrations++
		}

		m, ok := meta[r.EventID]
		if !ok {
			continue
		}

		if m.countsInCategory() {
			catCounts[m.category]++
			tallyEvent(catEvents, m.category, r.EventID, m.name)
			if today {
				catToday[m.category]++
				tallyEvent(catEventsToday, m.category, r.EventID, m.name)
			}
		}

		if m.hasDept {
			deptCounts[m.dept]++
			if today {
				deptToday[m.dept]++
			}
		}
		if m.hasConf {
			confCounts[m.conference]++
		}
		if m.hasBase {
			tallyBase(baseCounts, m.base, m.baseDept)
			if today {
				tallyBase(baseToday, m.base, m.baseDept)
			}
		}
	}

	for _, p := range in.Profiles {
		if !strings.EqualFold(p.Role, models.RoleStudent) {
			continue
		}
		s.Students++
		if !p.CreatedAt.Before(todayStart) && p.CreatedAt.Before(todayEnd) {
			s.OnSpot.NewProfiles++
		}
	}

	s.Categories = orderedCategoryCounts(catCounts)
	s.OnSpot.Categories = orderedCategoryCounts(catToday)
	s.Departments = sortedDeptCounts(deptCounts)
	s.OnSpot.Departments = sortedDeptCounts(deptToday)
	s.Conferences = sortedConferenceCounts(confCounts)
	s.SpecialBases = sortedBaseStats(baseCounts)
	s.OnSpot.SpecialBases = sortedBaseStats(baseToday)
	s.CategoryEvents = sortedCategoryEvents(catEvents)
	s.OnSpot.CategoryEvents = sortedCategoryEvents(catEventsToday)
	s.Colleges = GroupColleges(in.Profiles, PaidUserSet(in.Registrations))

	if in.TeamsUnavailable {
		s.Degraded = true
	} else {
		s.Team = ComputeTeamStats(in.Teams)
	}
	s.TotalParticipants = s.BasePaid + s.Team.ExtraPaidMembers

	return s
}

// DeltaResult describes what ApplyDelta did with a change.
type DeltaResult int

const (
	// DeltaIgnored means the change cannot affect any counter.
	DeltaIgnored DeltaResult = iota
	// DeltaApplied means counters were incremented.
	DeltaApplied
	// DeltaRecompute means the change cannot be patched incrementally
	// and the caller must schedule a full recompute.
	DeltaRecompute
)

// ApplyDelta merges one change notification into the snapshot, returning
// a patched copy. Only registration transitions into "paid" are applied
// incrementally; team and membership changes are too interdependent to
// patch and request a recompute instead. Re-delivery of an already
// counted transition is a no-op, and drill-down/college views stay as
// they were until the next recompute.
func ApplyDelta(s Snapshot, change models.ChangeEvent) (Snapshot, DeltaResult) {
	switch change.Table {
	case models.TableTeams, models.TableTeamMembers:
		return s, DeltaRecompute
	case models.TableRegistrations:
	default:
		return s, DeltaIgnored
	}

	newReg, err := models.DecodeRegistration(change.New)
	if err != nil || newReg == nil || !newReg.IsPaid() {
		return s, DeltaIgnored
	}
	oldReg, err := models.DecodeRegistration(change.Old)
	if err == nil && oldReg != nil && oldReg.IsPaid() {
		// Already paid before this change.
		return s, DeltaIgnored
	}
	if _, seen := s.paidRegs[newReg.ID]; seen {
		return s, DeltaIgnored
	}

	out := s.clone()
	out.paidRegs[newReg.ID] = struct{}{}
	out.BasePaid++
	out.TotalParticipants++

	today := !newReg.CreatedAt.Before(out.OnSpot.WindowStart) &&
		newReg.CreatedAt.Before(out.OnSpot.WindowEnd)
	if today {
		out.OnSpot.PaidRegistrations++
	}

	if m, ok := out.eventMeta[newReg.EventID]; ok {
		if m.countsInCategory() {
			bumpCategory(out.Categories, m.category)
			if today {
				bumpCategory(out.OnSpot.Categories, m.category)
			}
		}
		if m.hasDept {
			out.Departments = bumpDept(out.Departments, m.dept)
			if today {
				out.OnSpot.Departments = bumpDept(out.OnSpot.Departments, m.dept)
			}
		}
		if m.hasConf {
			out.Conferences = bumpConference(out.Conferences, m.conference)
		}
	}

	return out, DeltaApplied
}

// clone copies the snapshot deeply enough that ApplyDelta can mutate the
// copy without aliasing the original.
func (s Snapshot) clone() Snapshot {
	out := s

	out.paidRegs = make(map[uuid.UUID]struct{}, len(s.paidRegs)+1)
	for id := range s.paidRegs {
		out.paidRegs[id] = struct{}{}
	}

	out.Categories = append([]CategoryCount(nil), s.Categories...)
	out.Departments = append([]DeptCount(nil), s.Departments...)
	out.Conferences = append([]ConferenceCount(nil), s.Conferences...)
	out.OnSpot.Categories = append([]CategoryCount(nil), s.OnSpot.Categories...)
	out.OnSpot.Departments = append([]DeptCount(nil), s.OnSpot.Departments...)

	return out
}

func tallyEvent(m map[Category]map[string]*EventCount, cat Category, id, name string) {
	events := m[cat]
	if events == nil {
		events = make(map[string]*EventCount)
		m[cat] = events
	}
	ec := events[id]
	if ec == nil {
		ec = &EventCount{ID: id, Name: name}
		events[id] = ec
	}
	ec.Count++
}

func tallyBase(m map[string]map[string]int, base, dept string) {
	depts := m[base]
	if depts == nil {
		depts = make(map[string]int)
		m[base] = depts
	}
	depts[dept]++
}

func bumpCategory(counts []CategoryCount, cat Category) {
	for i := range counts {
		if counts[i].Category == cat {
			counts[i].Count++
			return
		}
	}
}

func bumpDept(counts []DeptCount, dept string) []DeptCount {
	for i := range counts {
		if counts[i].Dept == dept {
			counts[i].Count++
			return counts
		}
	}
	return append(counts, DeptCount{Dept: dept, Count: 1})
}

func bumpConference(counts []ConferenceCount, name string) []ConferenceCount {
	for i := range counts {
		if counts[i].Name == name {
			counts[i].Count++
			return counts
		}
	}
	return append(counts, ConferenceCount{Name: name, Count: 1})
}

// orderedCategoryCounts emits every tallied category in display order,
// zero counts included, so clients render a stable list.
func orderedCategoryCounts(counts map[Category]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(TalliedCategories))
	for _, cat := range TalliedCategories {
		out = append(out, CategoryCount{Category: cat, Count: counts[cat]})
	}
	return out
}

func sortedDeptCounts(counts map[string]int) []DeptCount {
	out := make([]DeptCount, 0, len(counts))
	for dept, n := range counts {
		out = append(out, DeptCount{Dept: dept, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Dept < out[j].Dept
	})
	return out
}

func sortedConferenceCounts(counts map[string]int) []ConferenceCount {
	out := make([]ConferenceCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, ConferenceCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortedBaseStats(counts map[string]map[string]int) []SpecialBaseStats {
	out := make([]SpecialBaseStats, 0, len(SpecialEventBases))
	for _, base := range SpecialEventBases {
		depts := counts[base]
		if len(depts) == 0 {
			continue
		}
		stat := SpecialBaseStats{Base: base}
		for dept, n := range depts {
			stat.Details = append(stat.Details, DeptCount{Dept: dept, Count: n})
			stat.Count += n
		}
		sort.Slice(stat.Details, func(i, j int) bool {
			if stat.Details[i].Count != stat.Details[j].Count {
				return stat.Details[i].Count > stat.Details[j].Count
			}
			return stat.Details[i].Dept < stat.Details[j].Dept
		})
		out = append(out, stat)
	}
	return out
}

func sortedCategoryEvents(m map[Category]map[string]*EventCount) map[Category][]EventCount {
	if len(m) == 0 {
		return nil
	}
	out := make(map[Category][]EventCount, len(m))
	for cat, events := range m {
		list := make([]EventCount, 0, len(events))
		for _, ec := range events {
			list = append(list, *ec)
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Count != list[j].Count {
				return list[i].Count > list[j].Count
			}
			return list[i].Name < list[j].Name
		})
		out[cat] = list
	}
	return out
}

// PaidRegistrationSeen reports whether the registration ID is already
// counted in the snapshot. Exposed for reconciler bookkeeping and tests.
func (s Snapshot) PaidRegistrationSeen(id uuid.UUID) bool {
	_, ok := s.paidRegs[id]
	return ok
}
