// Package importer loads books into the catalog from CSV exports such as
// those produced by barcode scanner apps.
//
// Each row must carry an ISBN column. Rows are enriched with OpenLibrary
// metadata (consulting the local ISBN cache first), merged with the CSV
// fields the API does not know about, and written inside a single
// transaction. Runs are dry by default: the transaction is rolled back
// unless the caller asks for a commit, so a run can be inspected safely
// before any data lands.
package importer
