package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultDedupeWindowMinutes is the window used when none is configured.
const DefaultDedupeWindowMinutes = 60

const (
	minWindowMinutes = 1
	maxWindowMinutes = 24 * 60
)

// ClampWindowMinutes bounds a requested dedupe window to [1, 1440] minutes.
func ClampWindowMinutes(n int) int {
	if n < minWindowMinutes {
		return minWindowMinutes
	}
	if n > maxWindowMinutes {
		return maxWindowMinutes
	}
	return n
}

// Candidate is a lead projected down to what duplicate grouping needs.
type Candidate struct {
	ID        uuid.UUID
	Identity  Identity
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Timestamp returns the candidate's recency reference: updated_at when
// present, created_at otherwise.
func (c Candidate) Timestamp() time.Time {
	if c.UpdatedAt != nil && !c.UpdatedAt.IsZero() {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// DuplicatePair marks one duplicate lead and the keeper it folds into.
type DuplicatePair struct {
	DupID  uuid.UUID
	KeepID uuid.UUID
	Key    string
}

// GroupDuplicates partitions candidates into duplicate clusters using the
// identity key plus a time window. The walk is recency-first and greedy:
// candidates are sorted newest first, so the most recent record of any
// cluster always survives as keeper. A candidate joins the first keeper
// in its key bucket whose timestamp lies within the window; otherwise it
// becomes a new keeper for that key.
//
// The window test is deliberately not transitive: two records each more
// than a window away from the keeper but within a window of each other
// are NOT merged. Output has at most one pair per duplicate id.
func GroupDuplicates(candidates []Candidate, windowMinutes int) []DuplicatePair {
	if len(candidates) == 0 {
		return nil
	}

	window := time.Duration(ClampWindowMinutes(windowMinutes)) * time.Minute

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp().After(sorted[j].Timestamp())
	})

	type keeper struct {
		id uuid.UUID
		ts time.Time
	}
	keptByKey := make(map[string][]keeper)
	var pairs []DuplicatePair

	for _, cand := range sorted {
		key := cand.Identity.DedupeKey()
		ts := cand.Timestamp()
		bucket := keptByKey[key]

		matched := false
		for _, k := range bucket {
			if absDuration(k.ts.Sub(ts)) <= window {
				pairs = append(pairs, DuplicatePair{DupID: cand.ID, KeepID: k.id, Key: key})
				matched = true
				break
			}
		}
		if !matched {
			keptByKey[key] = append(bucket, keeper{id: cand.ID, ts: ts})
		}
	}

	return pairs
}

// Dedupe returns the candidates that survive duplicate grouping, sorted by
// recency descending. Used for read-side views so listings do not show
// rows that a reconciliation run would remove.
func Dedupe(candidates []Candidate, windowMinutes int) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	duplicates := make(map[uuid.UUID]bool)
	for _, pair := range GroupDuplicates(candidates, windowMinutes) {
		duplicates[pair.DupID] = true
	}

	survivors := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if !duplicates[cand.ID] {
			survivors = append(survivors, cand)
		}
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Timestamp().After(survivors[j].Timestamp())
	})
	return survivors
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
