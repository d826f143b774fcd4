// Package library holds the catalog data model and the snapshot diff used to
// decide which items are new since the previous poll.
package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Section is a library category on the media server.
type Section int

const (
	Movie Section = iota
	Show
)

// Sections lists every section in display order.
var Sections = []Section{Movie, Show}

// Label is the human-readable heading for s.
func (s Section) Label() string {
	switch s {
	case Movie:
		return "Movies"
	case Show:
		return "TV Shows"
	default:
		return "Unknown"
	}
}

// Icon is the emoji used in listings for s.
func (s Section) Icon() string {
	switch s {
	case Movie:
		return "🎬"
	case Show:
		return "📺"
	default:
		return "❔"
	}
}

func (s Section) String() string {
	switch s {
	case Movie:
		return "movie"
	case Show:
		return "show"
	default:
		return fmt.Sprintf("section(%d)", int(s))
	}
}

// ParseSection is the inverse of Section.String.
func ParseSection(v string) (Section, error) {
	switch strings.ToLower(v) {
	case "movie":
		return Movie, nil
	case "show":
		return Show, nil
	default:
		return 0, fmt.Errorf("unknown section %q", v)
	}
}

// Item is one title in the catalog.
type Item struct {
	Title     string
	Year      mo.Option[int]
	AddedAt   time.Time
	Section   Section
	RatingKey string
}

// Identity is the comparison key of an Item. Items with the same title but a
// different (or missing) year are distinct.
type Identity struct {
	Title   string
	Year    int
	HasYear bool
	Section Section
}

// ID returns the identity of it.
func (it Item) ID() Identity {
	year, ok := it.Year.Get()
	return Identity{Title: it.Title, Year: year, HasYear: ok, Section: it.Section}
}

// YearLabel renders the year, or "Unknown" when the server has none.
func (it Item) YearLabel() string {
	if year, ok := it.Year.Get(); ok {
		return fmt.Sprintf("%d", year)
	}
	return "Unknown"
}

// String renders "Title (Year)".
func (it Item) String() string {
	return fmt.Sprintf("%s (%s)", it.Title, it.YearLabel())
}
