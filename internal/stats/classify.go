// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package stats

import (
	"regexp"
	"strings"
)

// Category is a canonical event category bucket.
type Category string

// Categories in display order. Workshop registrations are classified but
// excluded from category tallies.
const (
	CategoryWorkshop   Category = "Workshop"
	CategoryNonTech    Category = "Non Tech"
	CategoryTech       Category = "Tech"
	CategoryCulturals  Category = "Culturals"
	CategorySports     Category = "Sports"
	CategoryHackathon  Category = "Hackathon"
	CategoryConference Category = "Conference"
)

// TalliedCategories are the buckets reported in category statistics.
var TalliedCategories = []Category{
	CategoryNonTech,
	CategoryTech,
	CategoryCulturals,
	CategorySports,
	CategoryHackathon,
	CategoryConference,
}

type categoryRule struct {
	match func(string) bool
	tag   Category
}

// categoryRules is evaluated first-match-wins against the lowercased,
// trimmed category field. Order is semantic: "non-technical" contains
// "technical", so it must be tested first; workshop is first so workshop
// events never fall into another bucket.
var categoryRules = []categoryRule{
	{matchAny("workshop"), CategoryWorkshop},
	{matchAny("non-technical", "non-tech", "nontech", "non tech"), CategoryNonTech},
	{func(s string) bool { return strings.Contains(s, "technical") || s == "tech" }, CategoryTech},
	{matchAny("cultural"), CategoryCulturals},
	{matchAny("sport"), CategorySports},
	{matchAny("hack"), CategoryHackathon},
	{matchAny("conference"), CategoryConference},
}

func matchAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

// ClassifyCategory maps a free-text category field to its canonical
// bucket. The second return is false for unknown categories.
func ClassifyCategory(raw string) (Category, bool) {
	val := strings.ToLower(strings.TrimSpace(raw))
	if val == "" {
		return "", false
	}
	for _, rule := range categoryRules {
		if rule.match(val) {
			return rule.tag, true
		}
	}
	return "", false
}

type deptRule struct {
	match func(string) bool
	tag   string
}

// Plain substring tests misfire on short department codes ("it" is inside
// nearly every identifier), so those match on dash-delimited segments.
var (
	itSegment = regexp.MustCompile(`-it($|-)`)
	btSegment = regexp.MustCompile(`-bt($|-)`)
	ftSegment = regexp.MustCompile(`-ft($|-)`)
)

// deptRules is evaluated first-match-wins against the lowercased event
// identifier. "cse-aiml" precedes "cse" so AIML events do not fall into
// the generic CSE bucket.
var deptRules = []deptRule{
	{matchAny("cse-aiml"), "AIML"},
	{matchAny("aiml"), "AIML"},
	{matchAny("ai-ds", "aids"), "AI-DS"},
	{matchAny("csbs"), "CSBS"},
	{matchAny("cse"), "CSE"},
	{itSegment.MatchString, "IT"},
	{matchAny("ece"), "ECE"},
	{matchAny("eee"), "EEE"},
	{matchAny("mech"), "MECH"},
	{matchAny("mct"), "MCT"},
	{matchAny("civil"), "CIVIL"},
	{func(s string) bool { return btSegment.MatchString(s) || strings.Contains(s, "biotech") }, "BT"},
	{func(s string) bool { return ftSegment.MatchString(s) || strings.Contains(s, "food") }, "FT"},
	{matchAny("txt", "textile"), "TXT"},
	{matchAny("vlsi"), "EE(VLSI D&T)"},
	{matchAny("mca"), "MCA"},
	{matchAny("edc"), "EDC"},
	{matchAny("ipr"), "IPR"},
	{matchAny("cultural"), "CULTURAL"},
	{matchAny("school-of-life-science"), "SOLS"},
}

// DeptFromID derives a department tag from an event identifier.
// Unmatched identifiers yield ("", false) and are excluded from
// department tallies.
func DeptFromID(eventID string) (string, bool) {
	if eventID == "" {
		return "", false
	}
	eid := strings.ToLower(eventID)
	for _, rule := range deptRules {
		if rule.match(eid) {
			return rule.tag, true
		}
	}
	return "", false
}

// conferencePrefix is the fixed identifier prefix of conference events.
const conferencePrefix = "conference-event-"

// ConferenceNameFromID extracts the conference group name from an event
// identifier: "conference-event-robotics" yields "ROBOTICS". Conference
// events carry no department tag.
func ConferenceNameFromID(eventID string) (string, bool) {
	eid := strings.ToLower(eventID)
	if !strings.HasPrefix(eid, conferencePrefix) {
		return "", false
	}
	name := strings.TrimPrefix(eid, conferencePrefix)
	if name == "" {
		return "", false
	}
	return strings.ToUpper(name), true
}

// SpecialEventBases are event-name prefixes that group across departments
// in a secondary roll-up.
var SpecialEventBases = []string{
	"Paper Presentation",
	"Poster Presentation",
	"Project Presentation",
}

// AllowedTechEvents is the whitelist of technical events that count in
// the Tech bucket. Everything else under the "technical" category is a
// department-run event tallied elsewhere.
var AllowedTechEvents = []string{
	"AI Mystery Box Challenge",
	"Bioblitz- Map (Bio Treasure Hunt)",
	"Reel-O-Science",
	"3D Arena",
	"System Sense",
	"Zero Component",
	"DrapeX: Fabric Draping in Action",
	"CoreX(Project Presentation)",
}

var allowedTechNormalized = func() map[string]struct{} {
	m := make(map[string]struct{}, len(AllowedTechEvents))
	for _, name := range AllowedTechEvents {
		m[normalizeForMatch(name)] = struct{}{}
	}
	return m
}()

// normalizeForMatch lowercases and strips everything but letters and
// digits, so name comparisons survive punctuation and spacing drift.
func normalizeForMatch(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsAllowedTechEvent reports whether the event name is whitelisted for
// the Tech bucket.
func IsAllowedTechEvent(name string) bool {
	_, ok := allowedTechNormalized[normalizeForMatch(name)]
	return ok
}

// SpecialBaseFromEventName returns the presentation base an event name
// falls under, if any.
func SpecialBaseFromEventName(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	normalized := normalizeForMatch(name)
	for _, base := range SpecialEventBases {
		if strings.HasPrefix(normalized, normalizeForMatch(base)) {
			return base, true
		}
	}
	return "", false
}

// DeptFromEventName reads a department tag from a parenthesized suffix,
// e.g. "Paper Presentation (CSE)" yields "CSE".
func DeptFromEventName(name string) (string, bool) {
	open := strings.Index(name, "(")
	if open < 0 {
		return "", false
	}
	closing := strings.Index(name[open:], ")")
	if closing < 0 {
		return "", false
	}
	dept := strings.TrimSpace(name[open+1 : open+closing])
	if dept == "" {
		return "", false
	}
	return strings.ToUpper(dept), true
}
