// Package cli implements the city-scrapers command-line interface.
//
// The cli package provides the Cobra-based commands for running spiders
// (run, runall), combining the latest batches into aggregate feeds (combine),
// checking scraped meetings against the schema (validate) and listing the
// configured spiders (list). It wires together config, storage, spider, crawl,
// diff, pipeline and exporter.
package cli
