package phone

import "testing"

func TestIdentityDigits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+55 (11) 98765-4321", "5511987654321"},
		{"11 98765-4321", "11987654321"},
		{"0055 11 98765 4321", "5511987654321"},
		{"no digits", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := IdentityDigits(tt.in); got != tt.want {
			t.Errorf("IdentityDigits(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIdentityDigitsMatchesAcrossCountryCode(t *testing.T) {
	// The same subscriber submitted with and without the country prefix
	// must not agree on the full string but must agree on the tail.
	a := IdentityDigits("+55 11 98765-4321")
	b := IdentityDigits("011 98765-4321")
	if a[len(a)-11:] != b[len(b)-11:] {
		t.Errorf("expected shared subscriber tail, got %q and %q", a, b)
	}
}
