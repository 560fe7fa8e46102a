package scrape

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/ratelimit"
)

// detailURLPattern matches a project detail path and captures the numeric
// segments that form the project identifier.
var detailURLPattern = regexp.MustCompile(`szczegoly-projektu-2026-(\d+)-(\d+)-([a-f0-9]+)`)

// genericDetailLabel is the anchor text the portal uses for bare "details"
// links; those carry no title hint and are skipped in favor of titled links
// to the same URL.
const genericDetailLabel = "szczegóły projektu"

// DiscovererConfig controls the pagination crawl.
type DiscovererConfig struct {
	BaseURL     string
	ListingPath string
	MaxPages    int
}

// Discoverer walks the paginated listing and collects unique detail-page
// links in first-seen order.
type Discoverer struct {
	fetcher Fetcher
	limiter *ratelimit.Limiter
	cfg     DiscovererConfig
	logger  *zap.Logger
}

// NewDiscoverer constructs a Discoverer sharing the portal rate limiter.
func NewDiscoverer(fetcher Fetcher, limiter *ratelimit.Limiter, cfg DiscovererConfig, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		fetcher: fetcher,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run crawls listing pages until a page yields no new links, no next-page
// affordance remains, or the page ceiling is hit. A fetch or parse failure
// ends the crawl with whatever was collected so far; discovery is
// best-effort, not all-or-nothing.
func (d *Discoverer) Run(ctx context.Context) []ProjectLink {
	var links []ProjectLink
	seen := make(map[string]struct{})

	for page := 1; page <= d.cfg.MaxPages; page++ {
		if err := d.limiter.Wait(ctx); err != nil {
			d.logger.Warn("discovery interrupted", zap.Error(err))
			break
		}

		pageURL := d.listingURL(page)
		d.logger.Info("fetching listing page", zap.Int("page", page), zap.String("url", pageURL))

		fetched, err := d.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			fetchErrors.Inc()
			d.logger.Warn("listing fetch failed, stopping pagination",
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}
		pagesFetched.Inc()

		doc, err := fetched.Document()
		if err != nil {
			d.logger.Warn("listing parse failed, stopping pagination",
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}

		added := 0
		for _, link := range d.extractLinks(doc, fetched.FinalURL) {
			if _, dup := seen[link.URL]; dup {
				continue
			}
			seen[link.URL] = struct{}{}
			links = append(links, link)
			added++
		}
		d.logger.Info("listing page processed", zap.Int("page", page), zap.Int("new_links", added))

		if added == 0 {
			break
		}
		if !hasNextPage(doc) {
			break
		}
	}

	d.logger.Info("discovery finished", zap.Int("total_links", len(links)))
	return links
}

func (d *Discoverer) listingURL(page int) string {
	base := strings.TrimRight(d.cfg.BaseURL, "/") + d.cfg.ListingPath
	if page <= 1 {
		return base
	}
	return fmt.Sprintf("%s?page=%d", base, page)
}

// extractLinks pulls detail-page anchors with a usable title text.
func (d *Discoverer) extractLinks(doc *goquery.Document, pageURL string) []ProjectLink {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var links []ProjectLink
	doc.Find(`a[href*="szczegoly-projektu"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" || strings.EqualFold(text, genericDetailLabel) {
			return
		}

		full := d.resolveURL(base, href)
		if full == "" {
			return
		}
		links = append(links, ProjectLink{
			URL:   full,
			ID:    IDFromURL(full),
			Title: text,
		})
	})
	return links
}

func (d *Discoverer) resolveURL(base *url.URL, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		return base.ResolveReference(parsed).String()
	}
	return strings.TrimRight(d.cfg.BaseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

// IDFromURL derives the stable project identifier from a detail URL, e.g.
// ".../szczegoly-projektu-2026-12-345-ab12cd" yields "P12-345". Returns
// empty when the URL does not match; the detail page may still supply an id.
func IDFromURL(detailURL string) string {
	m := detailURLPattern.FindStringSubmatch(detailURL)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("P%s-%s", m[1], m[2])
}

// hasNextPage detects a pagination affordance in the listing markup.
func hasNextPage(doc *goquery.Document) bool {
	if doc.Find(`a[rel="next"], .pagination .next a, .pagination a.next`).Length() > 0 {
		return true
	}
	found := false
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if strings.Contains(text, "następna") && !sel.HasClass("disabled") {
			found = true
			return false
		}
		return true
	})
	return found
}
