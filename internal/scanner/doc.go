// Package scanner discovers music files on disk and reconciles them with
// the catalog's track inventory.
//
// A scan has two phases. The walk phase collects files under the music
// directory matching the configured extensions, skipping excluded
// directories. The reconcile phase compares each file against the stored
// inventory by path and fingerprint: new files are inserted, changed files
// updated, and tracks that disappeared are marked missing rather than
// deleted, preserving history for files that later reappear.
package scanner
