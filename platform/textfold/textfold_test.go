package textfold

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"São Paulo", "Sao Paulo"},
		{"Conceição", "Conceicao"},
		{"ANA SILVA", "ANA SILVA"},
		{"café", "cafe"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUpper(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  josé maria  ", "JOSE MARIA"},
		{"Ribeirão Preto", "RIBEIRAO PRETO"},
		{"sp", "SP"},
	}

	for _, tt := range tests {
		if got := Upper(tt.in); got != tt.want {
			t.Errorf("Upper(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLower(t *testing.T) {
	if got := Lower("  Águas Claras "); got != "aguas claras" {
		t.Errorf("Lower = %q, want %q", got, "aguas claras")
	}
}
