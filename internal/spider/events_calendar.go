package spider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"

	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

// EventsCalendar scrapes the REST API of the WordPress "The Events Calendar"
// plugin (/wp-json/tribe/events/v1/events). Events whose first category is not
// mapped to a classification are skipped.
type EventsCalendar struct {
	*base
	categories map[string]meeting.Classification
}

// NewEventsCalendar creates an events calendar spider from a slug index.
func NewEventsCalendar(b *base, categories map[string]meeting.Classification) *EventsCalendar {
	return &EventsCalendar{base: b, categories: categories}
}

type tribeResponse struct {
	Events      []tribeEvent `json:"events"`
	NextRestURL string       `json:"next_rest_url"`
}

type tribeEvent struct {
	ID               json.Number     `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	URL              string          `json:"url"`
	Website          string          `json:"website"`
	AllDay           bool            `json:"all_day"`
	StartDateDetails tribeDate       `json:"start_date_details"`
	EndDateDetails   tribeDate       `json:"end_date_details"`
	Categories       []tribeCategory `json:"categories"`
	Venue            json.RawMessage `json:"venue"`
}

type tribeCategory struct {
	Slug string `json:"slug"`
}

// tribeDate fields arrive as strings ("2026", "03") or numbers depending on the site.
type tribeDate struct {
	Year    flexInt `json:"year"`
	Month   flexInt `json:"month"`
	Day     flexInt `json:"day"`
	Hour    flexInt `json:"hour"`
	Minutes flexInt `json:"minutes"`
	Seconds flexInt `json:"seconds"`
}

// flexInt decodes 3, "3" and "03".
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid date component %s: %w", b, err)
	}
	*n = flexInt(v)
	return nil
}

type tribeVenue struct {
	Venue   string `json:"venue"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

func (d tribeDate) in(loc *time.Location) (time.Time, error) {
	if d.Year == 0 {
		return time.Time{}, fmt.Errorf("missing year")
	}
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), int(d.Hour), int(d.Minutes), int(d.Seconds), 0, loc), nil
}

func (s *EventsCalendar) Register(c *colly.Collector, emit Emit) {
	c.OnResponse(func(r *colly.Response) {
		var res tribeResponse
		if err := json.Unmarshal(r.Body, &res); err != nil {
			logger.Warn("Invalid events calendar response", logger.Fields{
				"url":   r.Request.URL.String(),
				"error": err.Error(),
			})
			return
		}

		for _, item := range res.Events {
			m, ok, err := s.meeting(item)
			if err != nil {
				logger.Warn("Skipping event", logger.Fields{
					"spider": s.agency.Spider,
					"event":  item.ID.String(),
					"error":  err.Error(),
				})
				continue
			}
			if ok {
				emit(m)
			}
		}

		if res.NextRestURL != "" {
			if err := r.Request.Visit(res.NextRestURL); err != nil && !errors.As(err, new(*colly.AlreadyVisitedError)) {
				logger.Warn("Failed to follow next page", logger.Fields{
					"url":   res.NextRestURL,
					"error": err.Error(),
				})
			}
		}
	})
}

// classification maps the first category slug. ok is false for unmapped events.
func (s *EventsCalendar) classification(item tribeEvent) (meeting.Classification, bool) {
	if len(item.Categories) == 0 {
		return meeting.NotClassified, false
	}
	c, ok := s.categories[item.Categories[0].Slug]
	if !ok || c == meeting.NotClassified {
		return meeting.NotClassified, false
	}
	return c, true
}

func (s *EventsCalendar) meeting(item tribeEvent) (*meeting.Meeting, bool, error) {
	classification, ok := s.classification(item)
	if !ok {
		return nil, false, nil
	}

	start, err := item.StartDateDetails.in(s.loc)
	if err != nil {
		return nil, false, fmt.Errorf("start: %w", err)
	}
	end, err := item.EndDateDetails.in(s.loc)
	if err != nil {
		end = time.Time{}
	}

	source := item.URL
	if source == "" {
		source = s.defaultSource()
	}

	links := []meeting.Link{}
	if item.Website != "" {
		links = append(links, meeting.Link{Href: item.Website, Title: "Website"})
	}

	m := &meeting.Meeting{
		Title:          htmlText(item.Title),
		Description:    htmlText(item.Description),
		Classification: classification,
		Start:          start,
		End:            end,
		AllDay:         item.AllDay,
		Location:       parseVenue(item.Venue),
		Links:          links,
		Source:         source,
	}
	s.finish(m, "", "")
	return m, true, nil
}

// parseVenue reads the venue object; sites without a venue send an empty array.
func parseVenue(raw json.RawMessage) meeting.Location {
	var v tribeVenue
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return meeting.Location{}
	}

	var parts []string
	for _, p := range []string{v.Address, v.City, v.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	address := strings.Join(parts, ", ")
	if zip := strings.TrimSpace(v.Zip); zip != "" {
		address = strings.TrimSpace(address + " " + zip)
	}
	return meeting.Location{Name: htmlText(v.Venue), Address: address}
}

// htmlText strips markup and entities from a WordPress field.
func htmlText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
