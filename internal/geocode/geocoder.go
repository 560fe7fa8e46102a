// Package geocode converts free-text project locations into map coordinates
// via Nominatim, with disk caching, bounding-box validation and a fallback
// chain that degrades to the city center rather than failing.
package geocode

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/budget"
	"github.com/budzetlodz/budzetmapa/internal/cache"
	"github.com/budzetlodz/budzetmapa/internal/ratelimit"
)

// fallbackConfidence marks a synthetic city-center pin so the map can render
// it differently from a precisely geocoded one.
const fallbackConfidence = 0.1

// searcher abstracts the Nominatim client for tests.
type searcher interface {
	Search(ctx context.Context, query string) (Hit, bool, error)
}

// Config captures the city-specific geocoding parameters.
type Config struct {
	City         string
	Country      string
	MinLat       float64
	MaxLat       float64
	MinLng       float64
	MaxLng       float64
	CenterLat    float64
	CenterLng    float64
	ShowProgress bool
}

// Geocoder resolves addresses with caching and throttling. Queries for the
// same normalized address hit the network at most once across runs.
type Geocoder struct {
	client  searcher
	cache   *cache.Store
	limiter *ratelimit.Limiter
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Geocoder. The limiter must enforce the provider's
// one-request-per-second policy and is shared across the whole run.
func New(client searcher, store *cache.Store, limiter *ratelimit.Limiter, cfg Config, logger *zap.Logger) *Geocoder {
	return &Geocoder{
		client:  client,
		cache:   store,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

var (
	abbrevUlica   = regexp.MustCompile(`(?i)\bul\.`)
	abbrevAleja   = regexp.MustCompile(`(?i)\bal\.`)
	abbrevPlac    = regexp.MustCompile(`(?i)\bpl\.`)
	abbrevOsiedle = regexp.MustCompile(`(?i)\bos\.`)
	spaceRuns     = regexp.MustCompile(`\s+`)
	addressChars  = regexp.MustCompile(`[^\wąćęłńóśźżĄĆĘŁŃÓŚŹŻ\s\-,]`)

	districtMarker = regexp.MustCompile(`(?i)(?:osiedle|dzielnica)\s+([^,;]+)`)
	streetMarker   = regexp.MustCompile(`(?i)(?:ul\.|ulica)\s+([^,;]+)`)
)

// NormalizeAddress expands Polish address abbreviations, collapses whitespace
// and strips characters that confuse the geocoding service.
func NormalizeAddress(address string) string {
	normalized := strings.TrimSpace(address)
	normalized = abbrevUlica.ReplaceAllString(normalized, "ulica")
	normalized = abbrevAleja.ReplaceAllString(normalized, "aleja")
	normalized = abbrevPlac.ReplaceAllString(normalized, "plac")
	normalized = abbrevOsiedle.ReplaceAllString(normalized, "osiedle")
	normalized = spaceRuns.ReplaceAllString(normalized, " ")
	normalized = addressChars.ReplaceAllString(normalized, "")
	return strings.TrimSpace(normalized)
}

// Address geocodes a free-text location. It returns nil with an error only on
// a genuine transport failure; a no-match or out-of-bounds result walks the
// fallback chain and always produces a result, at worst the low-confidence
// city center.
func (g *Geocoder) Address(ctx context.Context, address string) (*budget.GeocodeResult, error) {
	if strings.TrimSpace(address) == "" {
		return nil, nil
	}
	return g.geocode(ctx, address, 0)
}

func (g *Geocoder) geocode(ctx context.Context, address string, depth int) (*budget.GeocodeResult, error) {
	normalized := NormalizeAddress(address)
	if normalized == "" {
		return g.cityCenter(), nil
	}
	key := g.cacheKey(normalized)

	var cached budget.GeocodeResult
	if g.cache.Get(key, &cached) {
		cacheHits.Inc()
		return &cached, nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	queries.Inc()
	hit, found, err := g.client.Search(ctx, g.buildQuery(normalized))
	if err != nil {
		queryErrors.Inc()
		g.logger.Warn("geocode query failed",
			zap.String("address", normalized),
			zap.Error(err),
		)
		return nil, err
	}

	if found {
		result := budget.GeocodeResult{
			Lat:         hit.Lat,
			Lng:         hit.Lng,
			DisplayName: hit.DisplayName,
			Confidence:  hit.Importance,
			Timestamp:   budget.Timestamp(g.now()),
		}
		if g.withinBounds(result.Lat, result.Lng) {
			g.cache.Set(key, result)
			return &result, nil
		}
		g.logger.Warn("geocode result outside city bounds",
			zap.String("address", normalized),
			zap.Float64("lat", result.Lat),
			zap.Float64("lng", result.Lng),
		)
	}

	return g.fallback(ctx, normalized, depth)
}

// fallback retries with progressively less specific queries. Recursion is
// bounded to one level; past that the city center terminates the chain.
func (g *Geocoder) fallback(ctx context.Context, address string, depth int) (*budget.GeocodeResult, error) {
	fallbacks.Inc()
	if depth == 0 {
		if m := districtMarker.FindStringSubmatch(address); m != nil {
			return g.geocode(ctx, strings.TrimSpace(m[1]), depth+1)
		}
		if m := streetMarker.FindStringSubmatch(address); m != nil {
			return g.geocode(ctx, "ulica "+strings.TrimSpace(m[1]), depth+1)
		}
	}
	return g.cityCenter(), nil
}

// cityCenter builds the terminal synthetic result. It is deliberately not
// cached under the original address key so a later run retries the precise
// query.
func (g *Geocoder) cityCenter() *budget.GeocodeResult {
	return &budget.GeocodeResult{
		Lat:         g.cfg.CenterLat,
		Lng:         g.cfg.CenterLng,
		DisplayName: fmt.Sprintf("%s, %s (City Center - Fallback)", g.cfg.City, g.cfg.Country),
		Confidence:  fallbackConfidence,
		Timestamp:   budget.Timestamp(g.now()),
	}
}

func (g *Geocoder) cacheKey(normalized string) string {
	return fmt.Sprintf("%s, %s, %s", normalized, g.cfg.City, g.cfg.Country)
}

func (g *Geocoder) buildQuery(normalized string) string {
	if strings.Contains(strings.ToLower(normalized), strings.ToLower(g.cfg.City)) {
		return fmt.Sprintf("%s, %s", normalized, g.cfg.Country)
	}
	return fmt.Sprintf("%s, %s, %s", normalized, g.cfg.City, g.cfg.Country)
}

func (g *Geocoder) withinBounds(lat, lng float64) bool {
	return lat >= g.cfg.MinLat && lat <= g.cfg.MaxLat &&
		lng >= g.cfg.MinLng && lng <= g.cfg.MaxLng
}

// Projects geocodes the batch sequentially, in place. Records that already
// carry coordinates (map-widget extraction) are left untouched; records with
// no location text are marked no_address. Returns the success/failure tally.
func (g *Geocoder) Projects(ctx context.Context, records []budget.ProjectRecord) (geocoded, failed int, err error) {
	g.logger.Info("geocoding projects", zap.Int("count", len(records)))

	var bar *progressbar.ProgressBar
	if g.cfg.ShowProgress {
		bar = progressbar.Default(int64(len(records)), "geocoding")
	}

	for i := range records {
		if bar != nil {
			_ = bar.Add(1)
		}
		if err := ctx.Err(); err != nil {
			return geocoded, failed, err
		}

		record := &records[i]
		if record.StatusGeo == budget.GeocodeSuccess && record.HasCoordinates() {
			geocoded++
			continue
		}
		if record.LokalizacjaTekst == "" {
			record.StatusGeo = budget.GeocodeNoAddress
			failed++
			continue
		}

		result, gErr := g.Address(ctx, record.LokalizacjaTekst)
		if gErr != nil || result == nil {
			record.StatusGeo = budget.GeocodeFailed
			failed++
			continue
		}

		lat, lng, confidence := result.Lat, result.Lng, result.Confidence
		record.Lat = &lat
		record.Lng = &lng
		record.StatusGeo = budget.GeocodeSuccess
		record.Confidence = &confidence
		record.LinkGoogleMaps = fmt.Sprintf("https://www.google.com/maps?q=%g,%g", lat, lng)
		record.StreetView = &budget.StreetView{Heading: 0, Pitch: 0, FOV: 90}
		geocoded++
	}

	g.logger.Info("geocoding completed",
		zap.Int("geocoded", geocoded),
		zap.Int("failed", failed),
	)
	return geocoded, failed, nil
}
