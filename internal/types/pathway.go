// Package types provides the record definitions shared by the pathway tracker's
// services, stores and HTTP handlers.
package types

// Pathway names one of the pipelines a person progresses through.
type Pathway string

// Pathway values
const (
	PathwayNewcomer    Pathway = "NEWCOMER"
	PathwayNewBeliever Pathway = "NEW_BELIEVER"
)

// Pathways lists every known pathway in display order.
var Pathways = []Pathway{PathwayNewcomer, PathwayNewBeliever}

// Valid reports whether p is a known pathway.
func (p Pathway) Valid() bool {
	return p == PathwayNewcomer || p == PathwayNewBeliever
}

// Label returns the human readable name of the pathway.
func (p Pathway) Label() string {
	switch p {
	case PathwayNewcomer:
		return "Newcomer"
	case PathwayNewBeliever:
		return "New Believer"
	default:
		return string(p)
	}
}

// ParsePathway maps loose spreadsheet/form values onto a Pathway.
// Returns false when the value cannot be recognised.
func ParsePathway(s string) (Pathway, bool) {
	switch normalizeEnum(s) {
	case "NEWCOMER", "NEW_COMER", "NEW", "VISITOR", "GUEST":
		return PathwayNewcomer, true
	case "NEW_BELIEVER", "NEWBELIEVER", "BELIEVER", "SALVATION":
		return PathwayNewBeliever, true
	}
	return "", false
}

// Stage is an ordered step within a pathway.
type Stage struct {
	ID              string  `json:"id" yaml:"id"`
	Pathway         Pathway `json:"pathway" yaml:"pathway"`
	Name            string  `json:"name" yaml:"name"`
	Order           int     `json:"order" yaml:"order"`
	Description     string  `json:"description,omitempty" yaml:"description,omitempty"`
	AutoAdvanceRule string  `json:"auto_advance_rule,omitempty" yaml:"auto_advance_rule,omitempty"`
}
