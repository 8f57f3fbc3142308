// Command city-scrapers scrapes public meeting calendars and publishes them as
// JSCalendar or Open Civic Data feeds.
package main

import "github.com/city-bureau/city-scrapers-go/internal/cli"

func main() {
	cli.Execute()
}
