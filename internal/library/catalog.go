package library

// Catalog is one fetch of the media server, split by section in server order.
type Catalog struct {
	Movies []Item
	Shows  []Item
}

// All returns movies followed by shows.
func (c Catalog) All() []Item {
	out := make([]Item, 0, len(c.Movies)+len(c.Shows))
	out = append(out, c.Movies...)
	return append(out, c.Shows...)
}

// Len returns the total number of items.
func (c Catalog) Len() int {
	return len(c.Movies) + len(c.Shows)
}
