// Package exporter writes a spider's finished batch of records.
//
// BlobExporter stores the batch as newline-delimited JSON under a dated key in
// a storage.BlobStore, where the next run's diff and the combine step read it
// back. DryRunExporter prints the batch instead.
package exporter
