package bot

import (
	"slices"

	"github.com/edgard/plexdiscordbot/internal/database"
	"github.com/edgard/plexdiscordbot/internal/discord"
	"github.com/edgard/plexdiscordbot/internal/library"
)

// State is everything the bot remembers between cycles.
type State struct {
	// Snapshot is the catalog as of the last successful fetch.
	Snapshot library.Snapshot
	// Posted lists the live listing messages in display order.
	Posted []discord.PostedMessage
	// Dirty is set when the last publish failed, forcing the next cycle to
	// republish even if the catalog is unchanged.
	Dirty bool
}

func (s State) clone() State {
	return State{
		Snapshot: s.Snapshot,
		Posted:   slices.Clone(s.Posted),
		Dirty:    s.Dirty,
	}
}

func (s State) record() database.State {
	return database.State{
		Items:  s.Snapshot.Items(),
		Posted: slices.Clone(s.Posted),
		Dirty:  s.Dirty,
	}
}

func stateFromRecord(rec database.State) State {
	return State{
		Snapshot: library.NewSnapshot(rec.Items),
		Posted:   slices.Clone(rec.Posted),
		Dirty:    rec.Dirty,
	}
}
