package library

import (
	"cmp"
	"slices"
	"strings"
)

// Snapshot is the last-known set of catalog items, keyed by identity. It is
// replaced wholesale after every successful fetch.
type Snapshot struct {
	items map[Identity]Item
}

// NewSnapshot builds a snapshot from items. Later duplicates of an identity
// win, which keeps the newest AddedAt the server reported.
func NewSnapshot(items []Item) Snapshot {
	m := make(map[Identity]Item, len(items))
	for _, it := range items {
		m[it.ID()] = it
	}
	return Snapshot{items: m}
}

// Len returns the number of distinct items.
func (s Snapshot) Len() int {
	return len(s.items)
}

// Contains reports whether an item with identity id is present.
func (s Snapshot) Contains(id Identity) bool {
	_, ok := s.items[id]
	return ok
}

// Items returns the snapshot content in Sort order.
func (s Snapshot) Items() []Item {
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	Sort(out)
	return out
}

// Equal reports whether both snapshots hold the same identities.
func (s Snapshot) Equal(other Snapshot) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id := range s.items {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Diff returns the items of fetched whose identity is absent from prior, in
// fetch order and without duplicates. An empty prior marks everything new.
func Diff(fetched []Item, prior Snapshot) []Item {
	seen := make(map[Identity]struct{}, len(fetched))
	var added []Item
	for _, it := range fetched {
		id := it.ID()
		if prior.Contains(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		added = append(added, it)
	}
	return added
}

// Removed returns the prior items missing from fetched, in Sort order.
func Removed(fetched []Item, prior Snapshot) []Item {
	current := NewSnapshot(fetched)
	var gone []Item
	for id, it := range prior.items {
		if !current.Contains(id) {
			gone = append(gone, it)
		}
	}
	Sort(gone)
	return gone
}

// Sort orders items by case-insensitive title, then exact title, then year.
// Items without a year sort after dated ones with the same title.
func Sort(items []Item) {
	slices.SortStableFunc(items, Compare)
}

// Compare is the ordering used by Sort.
func Compare(a, b Item) int {
	if c := cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	ay, aok := a.Year.Get()
	by, bok := b.Year.Get()
	switch {
	case aok && bok:
		if c := cmp.Compare(ay, by); c != 0 {
			return c
		}
	case aok:
		return -1
	case bok:
		return 1
	}
	return cmp.Compare(a.Section, b.Section)
}

// BySection splits items per section, preserving order.
func BySection(items []Item) map[Section][]Item {
	out := make(map[Section][]Item, len(Sections))
	for _, it := range items {
		out[it.Section] = append(out[it.Section], it)
	}
	return out
}
