package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func contactCandidate(email string, ts time.Time) Candidate {
	return Candidate{
		ID:        uuid.New(),
		Identity:  NewIdentity("Ana Silva", "SP", "Campinas", "Solar", "", "", email, ""),
		CreatedAt: ts,
	}
}

func TestClampWindowMinutes(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{60, 60},
		{1440, 1440},
		{99999, 1440},
	}
	for _, tt := range tests {
		if got := ClampWindowMinutes(tt.in); got != tt.want {
			t.Errorf("ClampWindowMinutes(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCandidateTimestamp(t *testing.T) {
	created := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(2 * time.Hour)

	c := Candidate{CreatedAt: created}
	if got := c.Timestamp(); !got.Equal(created) {
		t.Errorf("Timestamp() = %v, want created_at %v", got, created)
	}

	c.UpdatedAt = &updated
	if got := c.Timestamp(); !got.Equal(updated) {
		t.Errorf("Timestamp() = %v, want updated_at %v", got, updated)
	}
}

func TestGroupDuplicatesKeepsMostRecent(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	oldest := contactCandidate("ana@gmail.com", base)
	middle := contactCandidate("ana@gmail.com", base.Add(10*time.Minute))
	newest := contactCandidate("ana@gmail.com", base.Add(20*time.Minute))

	pairs := GroupDuplicates([]Candidate{oldest, newest, middle}, 60)
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(pairs))
	}
	for _, p := range pairs {
		if p.KeepID != newest.ID {
			t.Errorf("keeper = %s, want newest %s", p.KeepID, newest.ID)
		}
		if p.DupID == newest.ID {
			t.Error("newest record marked as duplicate")
		}
	}
}

func TestGroupDuplicatesWindowBoundary(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	keeper := contactCandidate("ana@gmail.com", base)

	tests := []struct {
		name   string
		offset time.Duration
		merged bool
	}{
		{"exactly at window", -60 * time.Minute, true},
		{"one second inside", -60*time.Minute + time.Second, true},
		{"one second outside", -60*time.Minute - time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			older := contactCandidate("ana@gmail.com", base.Add(tt.offset))
			pairs := GroupDuplicates([]Candidate{keeper, older}, 60)
			if merged := len(pairs) == 1; merged != tt.merged {
				t.Errorf("merged = %v, want %v", merged, tt.merged)
			}
		})
	}
}

func TestGroupDuplicatesWindowNotTransitive(t *testing.T) {
	// b is within a window of both a and c, but a and c are 90 minutes
	// apart. c anchors its own cluster instead of chaining through b.
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := contactCandidate("ana@gmail.com", base)
	b := contactCandidate("ana@gmail.com", base.Add(-45*time.Minute))
	c := contactCandidate("ana@gmail.com", base.Add(-90*time.Minute))

	pairs := GroupDuplicates([]Candidate{a, b, c}, 60)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].DupID != b.ID || pairs[0].KeepID != a.ID {
		t.Errorf("pair = %+v, want b folded into a", pairs[0])
	}

	// c must survive as a second keeper for the same key.
	survivors := Dedupe([]Candidate{a, b, c}, 60)
	if len(survivors) != 2 {
		t.Fatalf("got %d survivors, want 2", len(survivors))
	}
	if survivors[0].ID != a.ID || survivors[1].ID != c.ID {
		t.Errorf("survivors = [%s %s], want [a c]", survivors[0].ID, survivors[1].ID)
	}
}

func TestGroupDuplicatesDistinctKeysNeverMerge(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := contactCandidate("ana@gmail.com", base)
	b := contactCandidate("other@gmail.com", base)

	if pairs := GroupDuplicates([]Candidate{a, b}, 1440); len(pairs) != 0 {
		t.Errorf("got %d pairs across distinct keys, want 0", len(pairs))
	}
}

func TestGroupDuplicatesGmailVariantsShareKey(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := contactCandidate("ana.silva@gmail.com", base)
	b := contactCandidate("anasilva+promo@googlemail.com", base.Add(-5*time.Minute))

	pairs := GroupDuplicates([]Candidate{a, b}, 60)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].DupID != b.ID || pairs[0].KeepID != a.ID {
		t.Errorf("pair = %+v, want b folded into a", pairs[0])
	}
}

func TestGroupDuplicatesIdempotent(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cands := []Candidate{
		contactCandidate("ana@gmail.com", base),
		contactCandidate("ana@gmail.com", base.Add(-10*time.Minute)),
		contactCandidate("ana@gmail.com", base.Add(-20*time.Minute)),
		contactCandidate("other@gmail.com", base),
	}

	survivors := Dedupe(cands, 60)
	if len(survivors) != 2 {
		t.Fatalf("got %d survivors after first pass, want 2", len(survivors))
	}
	if pairs := GroupDuplicates(survivors, 60); len(pairs) != 0 {
		t.Errorf("second pass found %d pairs, want 0", len(pairs))
	}
}

func TestGroupDuplicatesEmpty(t *testing.T) {
	if pairs := GroupDuplicates(nil, 60); pairs != nil {
		t.Errorf("got %v, want nil", pairs)
	}
	if survivors := Dedupe(nil, 60); survivors != nil {
		t.Errorf("got %v, want nil", survivors)
	}
}
