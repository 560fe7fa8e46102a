package scrape

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/budget"
	"github.com/budzetlodz/budzetmapa/internal/cache"
	"github.com/budzetlodz/budzetmapa/internal/normalize"
	"github.com/budzetlodz/budzetmapa/internal/ratelimit"
)

// widgetConfidence is the synthetic confidence assigned to coordinates taken
// directly from the portal's embedded map widget.
const widgetConfidence = 0.9

// bannerTitle is the site-wide heading some detail pages surface as their
// first h1; it is never a project title.
const bannerTitle = "Łódzki Budżet Obywatelski"

var costPattern = regexp.MustCompile(`\d[\d\s]*(?:,\d{2})?\s*(?:zł|PLN|złotych)`)

// strategy is one pure extraction pass over the parsed page. Strategies run
// in order and are merged first-non-empty-wins.
type strategy func(doc *goquery.Document) RawFields

var strategies = []strategy{
	labelledPairs,
	tableRows,
	freeTextFallback,
	costScan,
	mapWidgetCoords,
}

// extractFields runs the full strategy chain.
func extractFields(doc *goquery.Document) RawFields {
	var fields RawFields
	for _, s := range strategies {
		fields.merge(s(doc))
	}
	return fields
}

// assignByLabel routes a label/value pair into the matching field using the
// portal's label vocabulary. Case-insensitive substring matching mirrors the
// loose labelling on the detail pages.
func assignByLabel(fields *RawFields, label, value string) {
	label = strings.ToLower(strings.TrimSpace(label))
	value = strings.TrimSpace(value)
	if label == "" || value == "" {
		return
	}
	set := func(dst *string) {
		if *dst == "" {
			*dst = value
		}
	}
	switch {
	case strings.Contains(label, "typ") && !strings.Contains(label, "tytuł"):
		set(&fields.Typ)
	case strings.Contains(label, "kategoria"):
		set(&fields.Kategoria)
	case strings.Contains(label, "osiedle"), strings.Contains(label, "dzielnica"):
		set(&fields.Osiedle)
	case strings.Contains(label, "lokalizacja"), strings.Contains(label, "miejsce"):
		set(&fields.Lokalizacja)
	case strings.Contains(label, "koszt"), strings.Contains(label, "budżet"), strings.Contains(label, "szacunkowy"):
		set(&fields.Koszt)
	case strings.Contains(label, "nazwa"), strings.Contains(label, "tytuł"):
		set(&fields.Nazwa)
	case strings.Contains(label, "numer"), label == "id":
		set(&fields.ID)
	case strings.Contains(label, "opis"):
		set(&fields.Opis)
	}
}

// labelledPairs matches structural label elements (definition terms, bold
// runs, label-styled cells) against the vocabulary and takes the adjacent
// sibling as the value.
func labelledPairs(doc *goquery.Document) RawFields {
	var fields RawFields
	doc.Find("dt, strong, b, .label, .field-label, .detail-label").Each(func(_ int, sel *goquery.Selection) {
		label := sel.Text()
		value := strings.TrimSpace(sel.Next().Text())
		if value == "" {
			value = strings.TrimSpace(sel.Parent().Next().Text())
		}
		assignByLabel(&fields, label, value)
	})
	return fields
}

// tableRows treats the first cell of every multi-cell row as a label and the
// last as its value. A bold cell carrying a currency suffix is a strong cost
// signal regardless of its label.
func tableRows(doc *goquery.Document) RawFields {
	var fields RawFields
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		first := cells.First()
		last := cells.Last()
		assignByLabel(&fields, first.Text(), last.Text())

		lastText := strings.TrimSpace(last.Text())
		if fields.Koszt == "" && last.Find("strong, b").Length() > 0 && strings.Contains(lastText, "zł") {
			fields.Koszt = lastText
		}
	})
	return fields
}

// freeTextFallback recovers a title from the first heading and a description
// from the first substantial paragraph when the labelled strategies missed
// them.
func freeTextFallback(doc *goquery.Document) RawFields {
	var fields RawFields

	doc.Find("h1, h2").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			fields.Nazwa = text
			return false
		}
		return true
	})

	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if len([]rune(text)) > 100 && !strings.HasSuffix(text, ":") {
			fields.Opis = text
			return false
		}
		return true
	})

	return fields
}

// costScan is the last-resort cost heuristic: the first currency-amount
// pattern anywhere in the page text.
func costScan(doc *goquery.Document) RawFields {
	var fields RawFields
	if m := costPattern.FindString(doc.Find("body").Text()); m != "" {
		fields.Koszt = m
	}
	return fields
}

// mapWidgetCoords captures explicit coordinates from the portal's map embed,
// which spares the record a geocoding round trip entirely.
func mapWidgetCoords(doc *goquery.Document) RawFields {
	var fields RawFields
	sel := doc.Find(".we-mapcreator[data-default-lon][data-default-lat]").First()
	if sel.Length() == 0 {
		return fields
	}
	lonAttr, _ := sel.Attr("data-default-lon")
	latAttr, _ := sel.Attr("data-default-lat")
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(lonAttr), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latAttr), 64)
	if errLng != nil || errLat != nil {
		return fields
	}
	fields.Lat = &lat
	fields.Lng = &lng
	return fields
}

// Extractor turns one detail page into a normalized project record, caching
// results by URL.
type Extractor struct {
	fetcher Fetcher
	limiter *ratelimit.Limiter
	cache   *cache.Store
	logger  *zap.Logger
	now     func() time.Time
}

// NewExtractor constructs an Extractor sharing the portal rate limiter and
// the scrape cache.
func NewExtractor(fetcher Fetcher, limiter *ratelimit.Limiter, store *cache.Store, logger *zap.Logger) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		limiter: limiter,
		cache:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// Project fetches and extracts one detail page. A cache hit skips the
// network entirely. Fetch failures return nil and are not cached, so a later
// run retries them.
func (e *Extractor) Project(ctx context.Context, link ProjectLink) (*budget.ProjectRecord, error) {
	var cached budget.ProjectRecord
	if e.cache.Get(link.URL, &cached) {
		cacheHits.Inc()
		e.logger.Debug("using cached detail page", zap.String("url", link.URL))
		return &cached, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := e.fetcher.Fetch(ctx, link.URL)
	if err != nil {
		fetchErrors.Inc()
		e.logger.Warn("detail fetch failed", zap.String("url", link.URL), zap.Error(err))
		return nil, err
	}
	pagesFetched.Inc()

	doc, err := page.Document()
	if err != nil {
		e.logger.Warn("detail parse failed", zap.String("url", link.URL), zap.Error(err))
		return nil, err
	}

	fields := extractFields(doc)
	record := e.buildRecord(link, fields, doc)

	e.cache.Set(link.URL, record)
	projectsScraped.Inc()
	return &record, nil
}

// buildRecord normalizes raw fields into the canonical record shape.
func (e *Extractor) buildRecord(link ProjectLink, fields RawFields, doc *goquery.Document) budget.ProjectRecord {
	id := IDFromURL(link.URL)
	if id == "" {
		id = normalize.CleanText(fields.ID)
	}
	if id == "" {
		id = link.ID
	}

	record := budget.ProjectRecord{
		ID:               id,
		Nazwa:            e.resolveTitle(fields.Nazwa, link, doc),
		Typ:              normalize.NormalizeType(fields.Typ),
		Kategoria:        normalize.CleanText(fields.Kategoria),
		Osiedle:          normalize.CleanText(fields.Osiedle),
		LokalizacjaTekst: normalize.CleanText(fields.Lokalizacja),
		Koszt:            normalize.ParseCost(fields.Koszt),
		Opis:             normalize.CleanText(fields.Opis),
		LinkZrodlowy:     link.URL,
		DataPobrania:     budget.Timestamp(e.now()),
	}

	if fields.Lat != nil && fields.Lng != nil {
		confidence := widgetConfidence
		record.Lat = fields.Lat
		record.Lng = fields.Lng
		record.StatusGeo = budget.GeocodeSuccess
		record.Confidence = &confidence
	}
	return record
}

// resolveTitle rejects the site banner as a title, preferring the listing
// link text and then a secondary heading further down the page.
func (e *Extractor) resolveTitle(raw string, link ProjectLink, doc *goquery.Document) string {
	title := normalize.CleanText(raw)
	if title != "" && !strings.HasPrefix(title, bannerTitle) {
		return title
	}
	if link.Title != "" {
		return normalize.CleanText(link.Title)
	}
	secondary := ""
	doc.Find("h2, h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := normalize.CleanText(sel.Text())
		if text != "" && !strings.HasPrefix(text, bannerTitle) {
			secondary = text
			return false
		}
		return true
	})
	return secondary
}
