// Package openlibrary provides the minimal OpenLibrary Books API client used
// during CSV imports.
//
// It wraps the jscmd=data lookup endpoint keyed by ISBN and returns strongly
// typed book records so the importer can merge them with CSV rows. Options
// allow tests to supply custom HTTP clients without modifying production code.
package openlibrary
