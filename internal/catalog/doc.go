// Package catalog persists the media catalog in SQLite and exposes helpers
// for the book domain, the music track inventory, scan jobs, and user
// accounts.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-job recovery, and scan status
// transitions. Authors, publishers, series, and tags are deduplicated on
// their natural unique keys so repeated imports converge instead of piling
// up duplicates.
//
// Treat this package as the single source of truth for catalog semantics;
// when you add new scan statuses or columns, update schema.sql and bump
// schemaVersion.
package catalog
