package service

import "testing"

func strPtr(s string) *string { return &s }

func TestNormalizedPhone(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{"nil passes through", nil, nil},
		{"local number formatted to e164", strPtr("11 99876-5432"), strPtr("+5511998765432")},
		{"already e164 unchanged", strPtr("+5511998765432"), strPtr("+5511998765432")},
		{"unparseable kept trimmed", strPtr("  not-a-phone  "), strPtr("not-a-phone")},
		{"empty stays empty", strPtr(""), strPtr("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizedPhone(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("normalizedPhone() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("normalizedPhone() = %q, want %q", *got, *tt.want)
			}
		})
	}
}
