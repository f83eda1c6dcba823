// Package isbncache provides a local cache of OpenLibrary lookup results
// keyed by normalized ISBN.
//
// The importer consults the cache before issuing API requests so repeated
// imports of overlapping CSV files do not hammer OpenLibrary. Negative
// results are cached too, so unknown ISBNs are only looked up once.
//
// The cache is stored as a human-readable JSON file inside the configured
// import cache directory. A cache constructed with an empty path is inert
// and every operation becomes a no-op.
package isbncache
