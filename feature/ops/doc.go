// Package ops exposes the tracker's operational HTTP surface.
//
// It is intentionally small: a liveness endpoint and a read-only listing of
// the persisted feed checkpoints, which is the first thing an operator wants
// to see when a region looks stalled. It carries no analytics and no mutation
// endpoints.
//
// # HTTP Endpoints
//
//   - GET /healthz   : liveness plus the regions being tracked.
//   - GET /positions : per-feed storage/resuming checkpoint pairs.
package ops
