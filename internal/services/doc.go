// Package services defines shared utilities consumed by the edit orchestrator
// and its remote integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, operation names, job handles, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers for every failure the orchestrator can surface,
//     plus the Wrap helper and KindOf classifier that translate failures into
//     the kind/message pair shown to the user.
//
// Use these helpers when wiring new operation logic so error reporting and
// observability stay uniform across components.
package services
