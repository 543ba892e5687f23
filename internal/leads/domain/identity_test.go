package domain

import "testing"

func TestIdentityToken(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"folds accents and uppercases", "São Paulo", 120, "SAO PAULO"},
		{"trims whitespace", "  ana silva  ", 120, "ANA SILVA"},
		{"caps length", "ABCDEF", 4, "ABCD"},
		{"empty", "   ", 120, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IdentityToken(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("IdentityToken(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Ana.Silva@Example.COM", "ana.silva@example.com"},
		{"gmail strips dots", "ana.silva@gmail.com", "anasilva@gmail.com"},
		{"gmail strips plus suffix", "anasilva+promo@gmail.com", "anasilva@gmail.com"},
		{"googlemail aliases to gmail", "ana.silva+x@googlemail.com", "anasilva@gmail.com"},
		{"non-gmail keeps dots and plus", "a.b+c@empresa.com.br", "a.b+c@empresa.com.br"},
		{"missing at sign", "not-an-email", ""},
		{"empty local part", "@gmail.com", ""},
		{"empty", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEmail(tt.in); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmailGmailVariantsConverge(t *testing.T) {
	// These spell the same mailbox and must produce the same identity.
	variants := []string{
		"ana.silva@gmail.com",
		"anasilva+promo@googlemail.com",
		"Ana.Silva+Promo@Gmail.com",
		"a.na.sil.va@gmail.com",
	}
	want := NormalizeEmail(variants[0])
	for _, v := range variants[1:] {
		if got := NormalizeEmail(v); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestDedupeKey(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want string
	}{
		{
			"email dominates",
			NewIdentity("Ana Silva", "sp", "Campinas", "Solar", "10k", "30d", "ana.silva@gmail.com", "+55 11 98765-4321"),
			"ANA SILVA|SP|SOLAR|email:anasilva@gmail.com",
		},
		{
			"phone when no email",
			NewIdentity("Ana Silva", "sp", "", "Solar", "", "", "", "+55 11 98765-4321"),
			"ANA SILVA|SP|SOLAR|whatsapp:5511987654321",
		},
		{
			"profile tuple when no contact",
			NewIdentity("Ana Silva", "sp", "Campinas", "Solar", "10k", "30d", "", ""),
			"ANA SILVA|SP|CAMPINAS|SOLAR|10K|30D|nocontact",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.DedupeKey(); got != tt.want {
				t.Errorf("DedupeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDedupeKeyContactVariantsAgree(t *testing.T) {
	a := NewIdentity("Ana Silva", "SP", "Campinas", "Solar", "10k", "30d", "ana.silva@gmail.com", "")
	b := NewIdentity("ana silva", "sp", "", "solar", "", "", "anasilva+promo@googlemail.com", "")
	if a.DedupeKey() != b.DedupeKey() {
		t.Errorf("contact keys differ: %q vs %q", a.DedupeKey(), b.DedupeKey())
	}
}

func TestIdentityMatches(t *testing.T) {
	base := NewIdentity("Ana Silva", "SP", "Campinas", "Solar", "10k", "30d", "ana@gmail.com", "")

	tests := []struct {
		name     string
		incoming Identity
		existing Identity
		want     bool
	}{
		{
			"same contact same profile",
			NewIdentity("Ana Silva", "SP", "Campinas", "Solar", "10k", "30d", "ana@gmail.com", ""),
			base,
			true,
		},
		{
			"missing optional fields are compatible",
			NewIdentity("Ana Silva", "SP", "", "Solar", "", "", "ana@gmail.com", ""),
			base,
			true,
		},
		{
			"different city is a mismatch",
			NewIdentity("Ana Silva", "SP", "Santos", "Solar", "", "", "ana@gmail.com", ""),
			base,
			false,
		},
		{
			"different name never matches",
			NewIdentity("Ana Souza", "SP", "Campinas", "Solar", "10k", "30d", "ana@gmail.com", ""),
			base,
			false,
		},
		{
			"different segment never matches",
			NewIdentity("Ana Silva", "SP", "Campinas", "Eolica", "10k", "30d", "ana@gmail.com", ""),
			base,
			false,
		},
		{
			"contact mismatch against record with contact",
			NewIdentity("Ana Silva", "SP", "", "Solar", "", "", "other@gmail.com", ""),
			base,
			false,
		},
		{
			"contact submission matches contactless record",
			NewIdentity("Ana Silva", "SP", "", "Solar", "", "", "ana@gmail.com", ""),
			NewIdentity("Ana Silva", "SP", "Campinas", "Solar", "10k", "30d", "", ""),
			true,
		},
		{
			"contactless submission matches on profile alone",
			NewIdentity("Ana Silva", "SP", "", "Solar", "", "", "", ""),
			base,
			true,
		},
		{
			"phone channel matches across country code formats",
			NewIdentity("Ana Silva", "SP", "", "Solar", "", "", "", "+55 (11) 98765-4321"),
			NewIdentity("Ana Silva", "SP", "", "Solar", "", "", "", "5511987654321"),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.incoming.Matches(tt.existing); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasContact(t *testing.T) {
	if NewIdentity("A", "SP", "", "S", "", "", "", "").HasContact() {
		t.Error("identity without channels reports contact")
	}
	if !NewIdentity("A", "SP", "", "S", "", "", "a@b.co", "").HasContact() {
		t.Error("identity with email reports no contact")
	}
	if !NewIdentity("A", "SP", "", "S", "", "", "", "11 98765 4321").HasContact() {
		t.Error("identity with phone reports no contact")
	}
}
