// Package feed defines the serialized record shapes written to feed storage.
//
// Two shapes are supported: JSCalendar events, where the scraper ID is a top-level
// namespaced key, and Open Civic Data events, where it lives under the "extra" mapping.
// Records are loose JSON documents so a previous run's output can be replayed without
// losing fields this version does not know about. Feeds are newline-delimited JSON.
package feed
