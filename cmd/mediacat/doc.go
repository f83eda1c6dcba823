// Command mediacat is the CLI for the personal media catalog.
//
// It manages a SQLite-backed catalog of books and music tracks: CSV bulk
// imports enriched via the OpenLibrary API, filesystem scans of the music
// library, user accounts, and a long-running daemon (`mediacat serve`) that
// processes queued scans and serves the HTTP API.
//
// Most commands operate on the catalog database directly; `status` queries a
// running daemon over HTTP.
package main
