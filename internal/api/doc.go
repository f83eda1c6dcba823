// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal catalog models into transport-friendly DTOs
// that the CLI and other consumers can render without coupling to internal
// types.
//
// # Key Types
//
// Book: transport representation of a catalog entry with linked authors,
// publishers, tags, series placement, and rating.
//
// ScanJob: scan job lifecycle state with track counters and heartbeat.
//
// WorkflowStatus/DaemonStatus: daemon running state and catalog stats.
//
// # Converters
//
// FromBook/FromScanJob/FromTrack map catalog records to DTOs; FromStatusSummary
// maps workflow.StatusSummary to WorkflowStatus.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (catalog.ScanStatus,
// catalog.TrackState) are exposed as lowercase strings. Timestamps use
// RFC3339 with milliseconds, and nullable times render as absent fields.
package api
