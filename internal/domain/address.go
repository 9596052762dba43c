package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Address is a postal address as entered by a user.
type Address struct {
	StreetNumber string `json:"numero" validate:"required"`
	StreetType   string `json:"type_voie"`
	StreetName   string `json:"adresse" validate:"required"`
	PostalCode   string `json:"code_postal" validate:"required"`
	Commune      string `json:"commune"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (a Address) Trimmed() Address {
	return Address{
		StreetNumber: strings.TrimSpace(a.StreetNumber),
		StreetType:   strings.TrimSpace(a.StreetType),
		StreetName:   strings.TrimSpace(a.StreetName),
		PostalCode:   strings.TrimSpace(a.PostalCode),
		Commune:      strings.TrimSpace(a.Commune),
	}
}

// Formatted joins the non-empty fields with single spaces. This is the query
// sent to the geocoder; nothing else is normalized.
func (a Address) Formatted() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.StreetNumber, a.StreetType, a.StreetName, a.PostalCode, a.Commune} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// AddressFromUser derives an Address from a user record, splitting the
// combined street field with SplitStreetName.
func AddressFromUser(u UserRecord) Address {
	streetType, name := SplitStreetName(u.StreetName)
	return Address{
		StreetNumber: strings.TrimSpace(u.StreetNumber),
		StreetType:   streetType,
		StreetName:   name,
		PostalCode:   strings.TrimSpace(u.PostalCode),
		Commune:      strings.TrimSpace(u.Commune),
	}
}

// multiWordStreetTypes are folded (lowercase, no accents) street types made
// of more than one word. Longest entries first.
var multiWordStreetTypes = []string{
	"route departementale",
	"route nationale",
	"chemin vicinal",
	"chemin rural",
	"voie communale",
	"ancien chemin",
	"petite rue",
	"grande rue",
	"rond point",
	"basse rue",
	"haute rue",
}

// SplitStreetName splits a combined street field into street type and name.
//
// The first word is taken as the type ("Rue de la Paix" → "Rue", "de la Paix")
// unless the field starts with one of the known multi-word types, compared
// without case or accents ("ROUTE DEPARTEMENTALE 12" → "ROUTE DEPARTEMENTALE",
// "12"). Multi-word types not in the table are split after the first word.
// A single word is returned as the name with an empty type, and a field that
// is exactly a multi-word type is split after its first word.
func SplitStreetName(full string) (streetType, name string) {
	fields := strings.Fields(full)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	}

	for _, prefix := range multiWordStreetTypes {
		n := strings.Count(prefix, " ") + 1
		if len(fields) <= n {
			continue
		}
		if foldStreetToken(strings.Join(fields[:n], " ")) == prefix {
			return strings.Join(fields[:n], " "), strings.Join(fields[n:], " ")
		}
	}

	return fields[0], strings.Join(fields[1:], " ")
}

// foldStreetToken lowercases s and strips combining marks, so "Départementale"
// and "DEPARTEMENTALE" compare equal.
func foldStreetToken(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
