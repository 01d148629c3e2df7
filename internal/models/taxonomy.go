package models

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// OtherSubsection is the sentinel that switches to a free text subsection.
const OtherSubsection = "Other"

// TaxonomySection is one top-level category with its ordered subsections.
type TaxonomySection struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Subsections []string `json:"subsections"`
}

var taxonomy = []TaxonomySection{
	{Name: "literature", Subsections: []string{"Fiction", "Nonfiction", "Drama", "Poetry", "Film Scripts", "Folklore", OtherSubsection}},
	{Name: "audio", Subsections: []string{"Sound Poetry", "Experimental Sound", "Music", "Podcast", "Oral Histories", OtherSubsection}},
	{Name: "visual art", Subsections: []string{"Paintings", "Photographs", "Digital Art", "Textile Art", "Films", "Sculpture", OtherSubsection}},
	{Name: "performance art", Subsections: []string{"Dance", "Theatre", "Installations", OtherSubsection}},
	{Name: "articles", Subsections: []string{"Editorials", "Research", "Reviews", "Case Studies", "Reports", "Opinions", OtherSubsection}},
}

// Taxonomy returns a copy of the full category tree in display order.
func Taxonomy() []TaxonomySection {
	out := make([]TaxonomySection, len(taxonomy))
	for i, s := range taxonomy {
		out[i] = TaxonomySection{Name: s.Name, Label: SectionLabel(s.Name), Subsections: slices.Clone(s.Subsections)}
	}
	return out
}

// Sections lists section names in display order.
func Sections() []string {
	out := make([]string, len(taxonomy))
	for i, s := range taxonomy {
		out[i] = s.Name
	}
	return out
}

// Subsections lists the subsections of section, nil when unknown.
func Subsections(section string) []string {
	for _, s := range taxonomy {
		if s.Name == section {
			return slices.Clone(s.Subsections)
		}
	}
	return nil
}

// IsSection reports whether section is a known section.
func IsSection(section string) bool {
	return Subsections(section) != nil
}

// IsSubsection reports whether subsection belongs to section.
func IsSubsection(section, subsection string) bool {
	return slices.Contains(Subsections(section), subsection)
}

// ResolveSubsection applies the Other override: choosing Other yields the
// trimmed free text instead.
func ResolveSubsection(selected, other string) string {
	if selected == OtherSubsection {
		return strings.TrimSpace(other)
	}
	return selected
}

// SectionLabel upper-cases the first letter of section for headings.
func SectionLabel(section string) string {
	r, size := utf8.DecodeRuneInString(section)
	if r == utf8.RuneError {
		return section
	}
	return string(unicode.ToUpper(r)) + section[size:]
}
