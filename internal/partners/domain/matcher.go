// Package domain implements the partner matching rules: mandatory
// segment fit plus geographic specificity tiers.
package domain

import (
	"sort"

	"leaddesk_backend/platform/textfold"

	"github.com/google/uuid"
)

const (
	// DefaultMatchLimit is the number of matches returned when the
	// caller does not ask for a specific amount.
	DefaultMatchLimit = 8
	// MaxMatchLimit caps the number of matches a single call returns.
	MaxMatchLimit = 50

	// missingPriority sorts partners without an explicit priority after
	// every prioritized one.
	missingPriority = 999
)

// Match tiers. Higher is more specific: every tier requires all the
// criteria of the tiers below it.
const (
	TierSegment       = 1
	TierSegmentRegion = 2
	TierSegmentCity   = 3
)

// Partner is a routing target for qualified leads.
type Partner struct {
	ID       uuid.UUID
	Name     string
	Segment  string
	Region   string
	City     string
	Priority *int
	Active   bool
}

// LeadProfile is the slice of a lead used for matching.
type LeadProfile struct {
	Segment string
	Region  string
	City    string
}

// Match is one partner with the specificity tier it reached.
type Match struct {
	Partner Partner
	Tier    int
}

// ClampLimit normalizes a requested result size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultMatchLimit
	}
	if limit > MaxMatchLimit {
		return MaxMatchLimit
	}
	return limit
}

func priorityOf(p Partner) int {
	if p.Priority == nil {
		return missingPriority
	}
	return *p.Priority
}

// MatchPartners ranks partners against a lead. Segment fit is mandatory:
// a lead without a segment, or a partner in a different segment, never
// matches. Surviving partners are tiered by geographic specificity and
// ordered tier first, then priority, then name. The ordering is total,
// so equal inputs always produce byte-identical output.
func MatchPartners(lead LeadProfile, partners []Partner, limit int) []Match {
	limit = ClampLimit(limit)

	segment := textfold.Upper(lead.Segment)
	if segment == "" {
		return []Match{}
	}
	region := textfold.Upper(lead.Region)
	city := textfold.Lower(lead.City)

	matches := make([]Match, 0, len(partners))
	for _, p := range partners {
		if !p.Active || textfold.Upper(p.Segment) != segment {
			continue
		}
		tier := TierSegment
		if region != "" && textfold.Upper(p.Region) == region {
			tier = TierSegmentRegion
			if city != "" && textfold.Lower(p.City) == city {
				tier = TierSegmentCity
			}
		}
		matches = append(matches, Match{Partner: p, Tier: tier})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Tier != b.Tier {
			return a.Tier > b.Tier
		}
		if pa, pb := priorityOf(a.Partner), priorityOf(b.Partner); pa != pb {
			return pa < pb
		}
		if na, nb := textfold.Lower(a.Partner.Name), textfold.Lower(b.Partner.Name); na != nb {
			return na < nb
		}
		return a.Partner.ID.String() < b.Partner.ID.String()
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
