package journal

import (
	"context"
	"errors"
)

// ErrClosed is returned by Next after Close has been requested.
var ErrClosed = errors.New("journal: source closed")

// Source is a pull-based, merged view over a region's journal feeds.
//
// Next returns io.EOF once every feed is exhausted. Per-feed cursor order is
// strictly increasing across successive events of the same feed.
type Source interface {
	// Next blocks until the next event is available, the context is
	// cancelled, the source is closed, or every feed is drained.
	Next(ctx context.Context) (*Event, error)

	// ResumePointer reports, for one feed, the cursor up to which the
	// source has safely consumed for restart purposes. This boundary is
	// not the same as the effect-commit boundary tracked by the engine.
	ResumePointer(feed string) (Cursor, bool)

	Close() error
}

// FeedSeed names one feed and the checkpoint to resume it from.
type FeedSeed struct {
	Name   string
	Cursor Cursor
}

// OpenFunc builds a Source over the given feeds. The engine is handed one of
// these so tests can substitute scripted sources.
type OpenFunc func(seeds []FeedSeed) (Source, error)
