// Package journal defines the boundary between the reconciliation engine and
// the ordered event source that merges the per-region journal feeds.
//
// Events form a closed sum: each of the five kinds carries only the payload
// that is meaningful for it, so an invalid kind/payload combination cannot be
// constructed. Every event is tagged with the feed it came from and a cursor
// (session file, byte offset) within that feed; per-feed cursor order is
// strictly increasing, while ordering across feeds is only as strong as the
// merge.
//
// The Source interface is the engine's only view of the merge component. The
// file-backed implementation in this package is thin glue that reads
// line-delimited JSON session files and merges feeds by event time; the real
// multi-feed lookahead processor is an external collaborator and its wire
// format is not specified here.
package journal
