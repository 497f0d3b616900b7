package domain

import "strings"

// NameRule maps any school name containing Match to Canonical.
type NameRule struct {
	Match     string
	Canonical string
}

// NameNormalizer applies rules in order; the first matching rule wins.
type NameNormalizer []NameRule

// DefaultSchoolNameRules repairs school names known to arrive double-encoded
// in the active case dataset. Matching on the ASCII tail of the name keeps the
// rules valid whichever way the accented prefix was mangled.
var DefaultSchoolNameRules = NameNormalizer{
	{Match: "taire catholique de Casselman", Canonical: "Catholic Elementary School de Casselman"},
	{Match: "taire catholique Saint-Isidore", Canonical: "Catholic Elementary School Saint-Isidore"},
}

// Normalize returns the canonical name for school, or school trimmed of
// surrounding whitespace when no rule matches.
func (n NameNormalizer) Normalize(school string) string {
	school = strings.TrimSpace(school)
	for _, r := range n {
		if r.Match != "" && strings.Contains(school, r.Match) {
			return r.Canonical
		}
	}
	return school
}

// IsBoardSite reports whether a school name denotes a school board office
// rather than a school.
func IsBoardSite(school string) bool {
	return strings.Contains(strings.ToLower(school), "board site")
}
