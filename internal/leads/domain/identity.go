// Package domain provides the core business rules for the leads bounded
// context: identity normalization, duplicate grouping, and the stage/score
// state machine. Everything in this package is pure; persistence lives in
// the repository layer.
package domain

import (
	"strings"

	"leaddesk_backend/platform/phone"
	"leaddesk_backend/platform/textfold"
)

// Per-field caps for identity tokens.
const (
	maxNameLen      = 120
	maxRegionLen    = 2
	maxCityLen      = 120
	maxSegmentLen   = 40
	maxBudgetLen    = 40
	maxTimeframeLen = 20
	maxEmailLen     = 180
)

// dotInsensitiveDomains are providers where dots in the local part are
// ignored and "+suffix" aliases deliver to the same mailbox.
var dotInsensitiveDomains = map[string]bool{
	"gmail.com": true,
}

// domainAliases maps alias provider domains onto their canonical domain.
var domainAliases = map[string]string{
	"googlemail.com": "gmail.com",
}

// IdentityToken canonicalizes a free-text identity field: accents folded,
// uppercased, trimmed, capped at maxLen bytes. Empty input yields "".
func IdentityToken(value string, maxLen int) string {
	token := textfold.Upper(value)
	if token == "" {
		return ""
	}
	if len(token) > maxLen {
		token = token[:maxLen]
	}
	return token
}

// NormalizeEmail canonicalizes an email address for identity comparison.
// Lowercases, resolves provider domain aliases, and for dot-insensitive
// providers strips dots and "+suffix" from the local part. Returns "" for
// anything that does not look like an address.
func NormalizeEmail(value string) string {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" {
		return ""
	}

	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	local, domain := email[:at], email[at+1:]

	if canonical, ok := domainAliases[domain]; ok {
		domain = canonical
	}
	if dotInsensitiveDomains[domain] {
		if plus := strings.IndexByte(local, '+'); plus >= 0 {
			local = local[:plus]
		}
		local = strings.ReplaceAll(local, ".", "")
	}

	normalized := local + "@" + domain
	if len(normalized) > maxEmailLen {
		normalized = normalized[:maxEmailLen]
	}
	return normalized
}

// Identity holds the normalized comparable tokens of one lead submission.
type Identity struct {
	Name      string
	Region    string
	City      string
	Segment   string
	Budget    string
	Timeframe string
	Email     string
	Phone     string
}

// NewIdentity normalizes raw lead fields into an Identity.
func NewIdentity(name, region, city, segment, budget, timeframe, email, whatsapp string) Identity {
	return Identity{
		Name:      IdentityToken(name, maxNameLen),
		Region:    IdentityToken(region, maxRegionLen),
		City:      IdentityToken(city, maxCityLen),
		Segment:   IdentityToken(segment, maxSegmentLen),
		Budget:    IdentityToken(budget, maxBudgetLen),
		Timeframe: IdentityToken(timeframe, maxTimeframeLen),
		Email:     NormalizeEmail(email),
		Phone:     phone.IdentityDigits(whatsapp),
	}
}

// HasContact reports whether the identity carries a usable contact channel.
func (id Identity) HasContact() bool {
	return id.Email != "" || id.Phone != ""
}

// DedupeKey derives the transient identity key used to test whether two
// submissions represent the same contact. With a contact channel present
// the channel dominates; without one the key falls back to the full
// profile tuple.
func (id Identity) DedupeKey() string {
	contact := "nocontact"
	switch {
	case id.Email != "":
		contact = "email:" + id.Email
	case id.Phone != "":
		contact = "whatsapp:" + id.Phone
	}

	if contact != "nocontact" {
		return strings.Join([]string{id.Name, id.Region, id.Segment, contact}, "|")
	}
	return strings.Join([]string{id.Name, id.Region, id.City, id.Segment, id.Budget, id.Timeframe, contact}, "|")
}

// Matches decides whether an inbound submission (the receiver) and an
// existing record represent the same contact. Name, region and segment
// must agree exactly; city, budget and timeframe are compatible when
// either side is missing (missing is not a mismatch). When the submission
// has a contact channel it must match one of the existing channels, or
// the existing record must have none.
func (id Identity) Matches(existing Identity) bool {
	if id.Name != existing.Name || id.Region != existing.Region || id.Segment != existing.Segment {
		return false
	}

	if !compatible(id.City, existing.City) ||
		!compatible(id.Budget, existing.Budget) ||
		!compatible(id.Timeframe, existing.Timeframe) {
		return false
	}

	if !id.HasContact() {
		return true
	}

	byEmail := id.Email != "" && existing.Email != "" && id.Email == existing.Email
	byPhone := id.Phone != "" && existing.Phone != "" && id.Phone == existing.Phone
	return byEmail || byPhone || !existing.HasContact()
}

// compatible treats an absent value on either side as agreement.
func compatible(a, b string) bool {
	return a == "" || b == "" || a == b
}
