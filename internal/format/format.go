// Package format renders the catalog as markdown pages sized for a chat
// message, plus a short summary used for the listing header.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edgard/plexdiscordbot/internal/library"
)

const (
	// DefaultMaxMessageLen leaves headroom under Discord's 2000 character cap.
	DefaultMaxMessageLen = 1900
	// DefaultMaxRecent bounds the recently added lines in the summary.
	DefaultMaxRecent = 10

	NewMarker = "🆕"
	bullet    = "•"
	ellipsis  = "…"
)

// Options tunes Format.
type Options struct {
	Now           time.Time
	NextCheck     time.Duration
	MaxMessageLen int
	MaxRecent     int
}

// Summary is the listing header content.
type Summary struct {
	Movies       int
	Shows        int
	Recent       []string
	RecentHidden int
	UpdatedAt    time.Time
	NextCheck    time.Duration
}

// Listing is a rendered catalog: one summary followed by ordered pages, none
// longer than the configured message size.
type Listing struct {
	Summary Summary
	Pages   []string
}

// MessageCount is the number of chat messages needed to show l.
func (l Listing) MessageCount() int {
	return 1 + len(l.Pages)
}

// Format renders items grouped by section and sorted, marking the ones in
// newItems. The output does not depend on the input order.
func Format(items, newItems []library.Item, opts Options) Listing {
	if opts.MaxMessageLen <= 0 {
		opts.MaxMessageLen = DefaultMaxMessageLen
	}
	if opts.MaxRecent <= 0 {
		opts.MaxRecent = DefaultMaxRecent
	}

	isNew := make(map[library.Identity]bool, len(newItems))
	for _, it := range newItems {
		isNew[it.ID()] = true
	}

	// Collapse duplicate identities so the counts match the snapshot.
	unique := library.NewSnapshot(items).Items()
	grouped := library.BySection(unique)

	recent := library.NewSnapshot(newItems).Items()
	summary := Summary{
		Movies:    len(grouped[library.Movie]),
		Shows:     len(grouped[library.Show]),
		UpdatedAt: opts.Now,
		NextCheck: opts.NextCheck,
	}
	for i, it := range recent {
		if i >= opts.MaxRecent {
			summary.RecentHidden = len(recent) - opts.MaxRecent
			break
		}
		summary.Recent = append(summary.Recent, fmt.Sprintf("%s %s", it.Section.Icon(), it))
	}

	var pages []string
	for _, section := range library.Sections {
		sectionItems := grouped[section]
		if len(sectionItems) == 0 {
			continue
		}
		lines := make([]string, 0, len(sectionItems))
		for _, it := range sectionItems {
			lines = append(lines, Line(it, isNew[it.ID()]))
		}
		pages = append(pages, paginate(section, lines, opts.MaxMessageLen)...)
	}

	return Listing{Summary: summary, Pages: pages}
}

// Line renders one item as a markdown bullet.
func Line(it library.Item, isNew bool) string {
	marker := ""
	if isNew {
		marker = NewMarker + " "
	}
	return fmt.Sprintf("%s %s%s\n", bullet, marker, it)
}

func heading(section library.Section, continued bool) string {
	h := fmt.Sprintf("## %s %s", section.Icon(), section.Label())
	if continued {
		h += " (cont.)"
	}
	return h + "\n\n"
}

func paginate(section library.Section, lines []string, maxLen int) []string {
	var pages []string
	var b strings.Builder

	b.WriteString(heading(section, false))
	itemsOnPage := 0
	for _, line := range lines {
		if itemsOnPage > 0 && b.Len()+len(line) > maxLen {
			pages = append(pages, b.String())
			b.Reset()
			b.WriteString(heading(section, true))
			itemsOnPage = 0
		}
		if b.Len()+len(line) > maxLen {
			line = truncate(line, maxLen-b.Len())
		}
		b.WriteString(line)
		itemsOnPage++
	}
	if itemsOnPage > 0 {
		pages = append(pages, b.String())
	}
	return pages
}

// truncate shortens a newline-terminated line to at most limit bytes,
// keeping it valid UTF-8 and terminated.
func truncate(line string, limit int) string {
	suffix := ellipsis + "\n"
	budget := limit - len(suffix)
	if budget <= 0 {
		return ""
	}
	body := strings.TrimSuffix(line, "\n")
	for len(body) > budget {
		_, size := utf8.DecodeLastRuneInString(body)
		body = body[:len(body)-size]
	}
	return body + suffix
}
