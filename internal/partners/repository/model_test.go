package repository

import (
	"testing"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestPartnerDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		partner Partner
		want    string
	}{
		{
			"trade name preferred",
			Partner{LegalName: "Acme Comercio de Pisos LTDA", TradeName: strPtr("Acme Pisos")},
			"Acme Pisos",
		},
		{
			"falls back to legal name",
			Partner{LegalName: "Acme Comercio de Pisos LTDA"},
			"Acme Comercio de Pisos LTDA",
		},
		{
			"empty trade name falls back",
			Partner{LegalName: "Acme Comercio de Pisos LTDA", TradeName: strPtr("")},
			"Acme Comercio de Pisos LTDA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.partner.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPartnerDomain(t *testing.T) {
	priority := 3
	row := Partner{
		ID:                 uuid.New(),
		LegalName:          "Vidros Sul LTDA",
		TradeName:          strPtr("Vidros Sul"),
		TaxID:              strPtr("12345678000195"),
		ClassificationCode: strPtr("4743-1/00"),
		Segment:            "VIDROS",
		Region:             strPtr("RS"),
		Priority:           &priority,
		Active:             true,
	}

	got := row.Domain()
	if got.ID != row.ID || got.Name != "Vidros Sul" || got.Segment != "VIDROS" {
		t.Errorf("Domain() = %+v", got)
	}
	if got.Region != "RS" || got.City != "" || !got.Active {
		t.Errorf("Domain() = %+v", got)
	}
	if got.Priority == nil || *got.Priority != priority {
		t.Errorf("Domain().Priority = %v", got.Priority)
	}
}
