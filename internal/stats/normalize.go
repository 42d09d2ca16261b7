// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

// Package stats holds the pure aggregation core: college-name
// normalization, event classification, participant totals, and the
// snapshot recompute/delta functions. Nothing here touches the network
// or the database, which keeps every rule testable in isolation.
package stats

import "strings"

// CollegeNotSpecified is the grouping key for blank college names.
const CollegeNotSpecified = "NOT SPECIFIED"

// collegePunctuation is stripped before grouping. Covers everything
// participants have actually typed into the college field.
const collegePunctuation = ".,;:'\"!?()[]{}-_/\\"

// collegeAbbreviations expands well-known short forms to the whitespace-free
// key of the full institution name, so "KSRCT" and "K S Rangasamy College of
// Technology" land in the same group.
var collegeAbbreviations = map[string]string{
	"KSRCT":   "KSRANGASAMYCOLLEGEOFTECHNOLOGY",
	"KSRCE":   "KSRANGASAMYCOLLEGEOFENGINEERING",
	"SKCET":   "SRIKRISHNACOLLEGEOFENGINEERINGANDTECHNOLOGY",
	"PSGTECH": "PSGCOLLEGEOFTECHNOLOGY",
	"PSGCT":   "PSGCOLLEGEOFTECHNOLOGY",
	"PSGCAS":  "PSGCOLLEGEOFARTSANDSCIENCE",
	"GCT":     "GOVERNMENTCOLLEGEOFTECHNOLOGY",
	"CIT":     "COIMBATOREINSTITUTEOFTECHNOLOGY",
	"KPRIET":  "KPRINSTITUTEOFENGINEERINGANDTECHNOLOGY",
	"SNSCT":   "SNSCOLLEGEOFTECHNOLOGY",
	"VCET":    "VELAMMALCOLLEGEOFENGINEERINGANDTECHNOLOGY",
	"ANNAUNIV": "ANNAUNIVERSITY",
	"VIT":     "VELLOREINSTITUTEOFTECHNOLOGY",
	"SRM":     "SRMUNIVERSITY",
	"SRMU":    "SRMUNIVERSITY",
	"NIT":     "NATIONALINSTITUTEOFTECHNOLOGY",
	"IIT":     "INDIANINSTITUTEOFTECHNOLOGY",
	"IIIT":    "INDIANINSTITUTEOFTECHNOLOGY",
}

// NormalizeCollege canonicalizes a free-text institution name into a stable
// grouping key. Applied in order: trim, uppercase, strip punctuation,
// collapse whitespace, merge the leading run of single-letter tokens
// ("K S RANGASAMY" becomes "KSRANGASAMY"), remove remaining whitespace,
// then expand known abbreviations. Blank input maps to CollegeNotSpecified.
func NormalizeCollege(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return CollegeNotSpecified
	}

	upper := strings.ToUpper(trimmed)
	var cleaned strings.Builder
	cleaned.Grow(len(upper))
	for _, r := range upper {
		if strings.ContainsRune(collegePunctuation, r) {
			continue
		}
		cleaned.WriteRune(r)
	}

	words := strings.Fields(cleaned.String())
	if len(words) == 0 {
		return CollegeNotSpecified
	}

	// Merge the maximal leading run of single capital letters; merging
	// stops permanently at the first multi-letter word.
	var key strings.Builder
	i := 0
	for ; i < len(words); i++ {
		r := []rune(words[i])
		if len(r) != 1 || r[0] < 'A' || r[0] > 'Z' {
			break
		}
		key.WriteRune(r[0])
	}
	for ; i < len(words); i++ {
		key.WriteString(words[i])
	}

	if full, ok := collegeAbbreviations[key.String()]; ok {
		return full
	}
	return key.String()
}
