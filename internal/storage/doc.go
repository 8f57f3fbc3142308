// Package storage provides blob storage for spider batches and aggregate feeds.
//
// Batches are newline-delimited JSON objects named <day prefix>/<HHMM>/<spider>.json,
// where the day prefix is a Go time layout (2006/01/02 by default). BlobStore has a
// local directory implementation (default ~/.local/share/city-scrapers/), an
// S3-compatible implementation on minio-go, and an in-memory one. PreviousLoader
// finds a spider's most recent batch for the diff, and Combiner publishes
// latest.json and upcoming.json from the newest batch of every spider.
package storage
