package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeActionDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2026-03-15", "2026-03-15", false},
		{"2026/03/15", "2026-03-15", false},
		{"15/03/2026", "2026-03-15", false},
		{"  2026-03-15  ", "2026-03-15", false},
		{"", "", false},
		{"15-03-2026", "", true},
		{"tomorrow", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeActionDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeActionDate(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeActionDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeActionTime(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"14:30", "14:30:00", false},
		{"14:30:45", "14:30:45", false},
		{"", "", false},
		{"2pm", "", true},
		{"14h30", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeActionTime(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeActionTime(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeActionTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewNextAction(t *testing.T) {
	action, err := NewNextAction("call back", "15/03/2026", "14:30")
	if err != nil {
		t.Fatalf("NewNextAction: %v", err)
	}
	want := NextAction{Text: "call back", Date: "2026-03-15", Time: "14:30:00"}
	if action != want {
		t.Errorf("got %+v, want %+v", action, want)
	}

	if _, err := NewNextAction("", "2026-03-15", "14:30"); err != nil {
		t.Errorf("date without text should be valid: %v", err)
	}
	if _, err := NewNextAction("call back", "", ""); err != nil {
		t.Errorf("text without date should be valid: %v", err)
	}
	if _, err := NewNextAction("x", "", "14:30"); !errors.Is(err, ErrTimeWithoutDate) {
		t.Errorf("time without date: err = %v", err)
	}
	if _, err := NewNextAction("", "", ""); !errors.Is(err, ErrEmptyNextAction) {
		t.Errorf("empty action: err = %v", err)
	}
	if _, err := NewNextAction("x", "soon", ""); !errors.Is(err, ErrInvalidActionDate) {
		t.Errorf("bad date: err = %v", err)
	}
}

func TestNewNextActionCapsText(t *testing.T) {
	long := strings.Repeat("a", 600)
	action, err := NewNextAction(long, "2026-03-15", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(action.Text) != 500 {
		t.Errorf("text length = %d, want 500", len(action.Text))
	}
}

func TestParseLegacyNote(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want NextAction
		ok   bool
	}{
		{
			"full encoding",
			"NEXT_ACTION|2026-03-15|14:30|call back about the proposal",
			NextAction{Text: "call back about the proposal", Date: "2026-03-15", Time: "14:30"},
			true,
		},
		{
			"text containing pipes",
			"NEXT_ACTION|2026-03-15|14:30|a|b|c",
			NextAction{Text: "a|b|c", Date: "2026-03-15", Time: "14:30"},
			true,
		},
		{
			"date only",
			"NEXT_ACTION|2026-03-15",
			NextAction{Date: "2026-03-15"},
			true,
		},
		{"plain note", "call back later", NextAction{}, false},
		{"empty", "", NextAction{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLegacyNote(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
