package spider

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"

	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

// LinkTypes are the Legistar columns always collected as meeting links.
var LinkTypes = []string{"Agenda", "Minutes", "Video", "Summary", "Captions"}

const (
	legistarYearTarget = "ctl00$ContentPlaceHolder1$lstYears"
	legistarYearState  = "ctl00_ContentPlaceHolder1_lstYears_ClientState"
	legistarICalHeader = "iCalendar"

	ctxYear = "legistar_year"
	ctxForm = "legistar_form"
)

var legistarHeaders = http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}}

// Legistar scrapes a Legistar Calendar.aspx page. The first GET is used only
// for its form state; one POST per year from SinceYear through the current year
// then returns the event tables, which are paged with further postbacks.
type Legistar struct {
	*base
	classification meeting.Classification
	linkTypes      []string
	sinceYear      int

	mu      sync.Mutex
	scraped map[string]bool
}

// NewLegistar creates a Legistar spider. A zero sinceYear starts at last year.
func NewLegistar(b *base, classification meeting.Classification, extraLinks []string, sinceYear int) *Legistar {
	return &Legistar{
		base:           b,
		classification: classification,
		linkTypes:      append(append([]string{}, LinkTypes...), extraLinks...),
		sinceYear:      sinceYear,
		scraped:        make(map[string]bool),
	}
}

func (l *Legistar) Register(c *colly.Collector, emit Emit) {
	c.OnHTML("html", func(e *colly.HTMLElement) {
		if e.Request.Ctx.Get(ctxYear) == "" {
			l.requestYears(c, e)
			return
		}
		for _, row := range l.parseEvents(e) {
			m, err := l.meeting(row)
			if err != nil {
				logger.Warn("Skipping Legistar row", logger.Fields{
					"spider": l.agency.Spider,
					"error":  err.Error(),
				})
				continue
			}
			emit(m)
		}
		l.requestNextPage(c, e)
	})
}

func (l *Legistar) years() (int, int) {
	current := l.now().In(l.loc).Year()
	since := l.sinceYear
	if since == 0 {
		since = current - 1
	}
	return since, current
}

func (l *Legistar) requestYears(c *colly.Collector, e *colly.HTMLElement) {
	secrets, ok := legistarSecrets(e.DOM)
	if !ok {
		logger.Warn("Legistar page has no form state", logger.Fields{"url": e.Request.URL.String()})
		return
	}

	since, current := l.years()
	for year := since; year <= current; year++ {
		form := url.Values{}
		for k, v := range secrets {
			form[k] = v
		}
		form.Set("__EVENTTARGET", legistarYearTarget)
		form.Set(legistarYearState, fmt.Sprintf(`{"value":"%d"}`, year))
		l.post(c, e.Request.URL.String(), strconv.Itoa(year), form)
	}
}

func (l *Legistar) requestNextPage(c *colly.Collector, e *colly.HTMLElement) {
	href, ok := e.DOM.Find("a.rgCurrentPage + a").First().Attr("href")
	if !ok {
		return
	}
	parts := strings.Split(href, "'")
	if len(parts) < 2 {
		return
	}

	form, err := url.ParseQuery(e.Request.Ctx.Get(ctxForm))
	if err != nil {
		form = url.Values{}
	}
	if secrets, ok := legistarSecrets(e.DOM); ok {
		for k, v := range secrets {
			form[k] = v
		}
	}
	form.Set("__EVENTTARGET", parts[1])
	l.post(c, e.Request.URL.String(), e.Request.Ctx.Get(ctxYear), form)
}

func (l *Legistar) post(c *colly.Collector, target, year string, form url.Values) {
	body := form.Encode()
	ctx := colly.NewContext()
	ctx.Put(ctxYear, year)
	ctx.Put(ctxForm, body)
	if err := c.Request(http.MethodPost, target, strings.NewReader(body), ctx, legistarHeaders); err != nil {
		logger.Warn("Legistar postback failed", logger.Fields{
			"url":   target,
			"year":  year,
			"error": err.Error(),
		})
	}
}

// legistarSecrets reads the ASP.NET form state needed for postbacks.
func legistarSecrets(doc *goquery.Selection) (url.Values, bool) {
	viewState, ok := doc.Find("[name='__VIEWSTATE']").First().Attr("value")
	if !ok {
		return nil, false
	}
	secrets := url.Values{
		"__EVENTARGUMENT": {""},
		"__VIEWSTATE":     {viewState},
	}
	if validation, ok := doc.Find("[name='__EVENTVALIDATION']").First().Attr("value"); ok {
		secrets.Set("__EVENTVALIDATION", validation)
	}
	return secrets, true
}

// legistarField is one cell of the events table.
type legistarField struct {
	Text string
	URL  string
}

type legistarRow map[string]legistarField

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// parseEvents reads table.rgMasterTable into rows keyed by column header.
// Rows without an iCalendar link, or whose link was already seen, are skipped.
func (l *Legistar) parseEvents(e *colly.HTMLElement) []legistarRow {
	table := e.DOM.Find("table.rgMasterTable").First()
	if table.Length() == 0 {
		return nil
	}

	var headers []string
	table.Find("th[class^='rgHeader']").Each(func(_ int, th *goquery.Selection) {
		if text := cellText(th); text != "" {
			headers = append(headers, text)
		} else if input := th.Find("input").First(); input.Length() > 0 {
			headers = append(headers, input.AttrOr("value", ""))
		} else {
			headers = append(headers, th.Find("img").First().AttrOr("alt", ""))
		}
	})

	var rows []legistarRow
	table.Find("tr.rgRow, tr.rgAltRow").Each(func(_ int, tr *goquery.Selection) {
		row := make(legistarRow)
		tr.Find("td").Each(func(i int, td *goquery.Selection) {
			if i >= len(headers) {
				return
			}
			header := headers[i]
			field := legistarField{Text: cellText(td), URL: cellURL(e, td)}
			if field.URL != "" && (header == "" || header == "ics") && strings.Contains(field.URL, "View.ashx?M=IC") {
				header = legistarICalHeader
			}
			row[header] = field
		})

		ical := row[legistarICalHeader].URL
		if ical == "" || !l.markScraped(ical) {
			return
		}
		rows = append(rows, row)
	})
	return rows
}

// cellURL extracts the link target of a cell, following Telerik popup handlers.
func cellURL(e *colly.HTMLElement, td *goquery.Selection) string {
	a := td.Find("a").First()
	if a.Length() == 0 {
		return ""
	}
	if onclick, ok := a.Attr("onclick"); ok {
		for _, prefix := range []string{"radopen('", "window.open", "OpenTelerikWindow"} {
			if strings.HasPrefix(onclick, prefix) {
				if parts := strings.Split(onclick, "'"); len(parts) > 1 {
					return e.Request.AbsoluteURL(parts[1])
				}
			}
		}
	}
	if href, ok := a.Attr("href"); ok {
		return e.Request.AbsoluteURL(href)
	}
	return ""
}

func (l *Legistar) markScraped(ical string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.scraped[ical] {
		return false
	}
	l.scraped[ical] = true
	return true
}

func (l *Legistar) meeting(row legistarRow) (*meeting.Meeting, error) {
	start, err := l.start(row)
	if err != nil {
		return nil, err
	}

	m := &meeting.Meeting{
		Title:          row["Name"].Text,
		Classification: l.classification,
		Start:          start,
		Location:       meeting.Location{Name: row["Meeting Location"].Text},
		Links:          l.links(row),
		Source:         l.source(row),
	}
	l.finish(m, "", row["Meeting Time"].Text)
	return m, nil
}

// start combines "Meeting Date" and "Meeting Time", falling back to the date alone.
func (l *Legistar) start(row legistarRow) (time.Time, error) {
	date := row["Meeting Date"].Text
	if date == "" {
		return time.Time{}, fmt.Errorf("row without meeting date")
	}
	if t, err := time.ParseInLocation("1/2/2006 3:04 PM", date+" "+row["Meeting Time"].Text, l.loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("1/2/2006", date, l.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing meeting date %q: %w", date, err)
	}
	return t, nil
}

func (l *Legistar) links(row legistarRow) []meeting.Link {
	links := []meeting.Link{}
	for _, linkType := range l.linkTypes {
		if field, ok := row[linkType]; ok && field.URL != "" {
			links = append(links, meeting.Link{Href: field.URL, Title: linkType})
		}
	}
	return links
}

func (l *Legistar) source(row legistarRow) string {
	for _, header := range []string{"Name", "Meeting Details"} {
		if field, ok := row[header]; ok && field.URL != "" {
			return field.URL
		}
	}
	return l.defaultSource()
}
