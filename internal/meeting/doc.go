// Package meeting provides the normalized representation of a scraped government meeting.
//
// Every spider emits Meeting values regardless of the site it scrapes. Each meeting carries a
// deterministic scraper ID built from the spider name, start time, and cleaned title, so the
// same meeting maps to the same ID across runs. A separate persistent ID is assigned by the
// output layer the first time a meeting is exported and carried forward on later runs.
package meeting
