package geocode

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/budget"
	"github.com/budzetlodz/budzetmapa/internal/cache"
	"github.com/budzetlodz/budzetmapa/internal/ratelimit"
)

type fakeSearcher struct {
	calls   int
	queries []string
	handler func(query string) (Hit, bool, error)
}

func (f *fakeSearcher) Search(_ context.Context, query string) (Hit, bool, error) {
	f.calls++
	f.queries = append(f.queries, query)
	if f.handler == nil {
		return Hit{}, false, nil
	}
	return f.handler(query)
}

func testConfig() Config {
	return Config{
		City:      "Łódź",
		Country:   "Poland",
		MinLat:    51.6,
		MaxLat:    51.9,
		MinLng:    19.2,
		MaxLng:    19.7,
		CenterLat: 51.7592,
		CenterLng: 19.4560,
	}
}

func newTestGeocoder(t *testing.T, client searcher) (*Geocoder, *cache.Store) {
	t.Helper()
	store := cache.New(filepath.Join(t.TempDir(), "geocode.json"), zap.NewNop())
	return New(client, store, ratelimit.New(0), testConfig(), zap.NewNop()), store
}

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ul. Piotrkowska 104", "ulica Piotrkowska 104"},
		{"al. Kościuszki 1", "aleja Kościuszki 1"},
		{"pl. Wolności", "plac Wolności"},
		{"os. Radogoszcz", "osiedle Radogoszcz"},
		{"ul.  Wschodnia   5", "ulica Wschodnia 5"},
		{"Park (przy ul. Zgierskiej)", "Park przy ulica Zgierskiej"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizeAddress(tc.in), "input %q", tc.in)
	}
}

func TestAddressCachesAndIsIdempotent(t *testing.T) {
	client := &fakeSearcher{handler: func(string) (Hit, bool, error) {
		return Hit{Lat: 51.77, Lng: 19.45, DisplayName: "Piotrkowska, Łódź", Importance: 0.8}, true, nil
	}}
	g, store := newTestGeocoder(t, client)

	first, err := g.Address(context.Background(), "ul. Piotrkowska 104")
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, 1, client.calls)
	require.True(t, store.Has("ulica Piotrkowska 104, Łódź, Poland"))

	second, err := g.Address(context.Background(), "ul. Piotrkowska 104")
	require.NoError(t, err)
	require.Equal(t, first, second, "warm-cache result must be bit-identical")
	require.Equal(t, 1, client.calls, "second call must not hit the network")
}

func TestAddressQueryIncludesCityAndCountry(t *testing.T) {
	client := &fakeSearcher{handler: func(string) (Hit, bool, error) {
		return Hit{Lat: 51.7, Lng: 19.4, Importance: 0.6}, true, nil
	}}
	g, _ := newTestGeocoder(t, client)

	_, err := g.Address(context.Background(), "ul. Wschodnia 5")
	require.NoError(t, err)
	require.Equal(t, "ulica Wschodnia 5, Łódź, Poland", client.queries[0])

	// Address already naming the city gets only the country appended.
	_, err = g.Address(context.Background(), "Stare Polesie, Łódź")
	require.NoError(t, err)
	require.Equal(t, "Stare Polesie, Łódź, Poland", client.queries[1])
}

func TestFallbackTerminatesAtCityCenter(t *testing.T) {
	client := &fakeSearcher{} // never finds anything
	g, store := newTestGeocoder(t, client)

	result, err := g.Address(context.Background(), "zupełnie nieznane miejsce")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.InDelta(t, 51.7592, result.Lat, 1e-9)
	require.InDelta(t, 19.4560, result.Lng, 1e-9)
	require.InDelta(t, 0.1, result.Confidence, 1e-9)
	require.Contains(t, result.DisplayName, "Fallback")
	require.Equal(t, 0, store.Len(), "terminal fallback must not be cached")
}

func TestFallbackRetriesDistrictName(t *testing.T) {
	client := &fakeSearcher{handler: func(query string) (Hit, bool, error) {
		if strings.HasPrefix(query, "Radogoszcz,") {
			return Hit{Lat: 51.82, Lng: 19.44, DisplayName: "Radogoszcz", Importance: 0.4}, true, nil
		}
		return Hit{}, false, nil
	}}
	g, store := newTestGeocoder(t, client)

	result, err := g.Address(context.Background(), "boisko na osiedle Radogoszcz, przy lesie")
	require.NoError(t, err)
	require.InDelta(t, 51.82, result.Lat, 1e-9)
	// The recursive attempt caches under its own key, not the original one.
	require.True(t, store.Has("Radogoszcz, Łódź, Poland"))
	require.False(t, store.Has("boisko na osiedle Radogoszcz, przy lesie, Łódź, Poland"))
}

func TestFallbackRetriesStreetName(t *testing.T) {
	client := &fakeSearcher{handler: func(query string) (Hit, bool, error) {
		if strings.HasPrefix(query, "ulica Limanowskiego") {
			return Hit{Lat: 51.79, Lng: 19.43, Importance: 0.3}, true, nil
		}
		return Hit{}, false, nil
	}}
	g, _ := newTestGeocoder(t, client)

	result, err := g.Address(context.Background(), "skwer przy ul. Limanowskiego 60")
	require.NoError(t, err)
	require.InDelta(t, 51.79, result.Lat, 1e-9)
}

func TestOutOfBoundsResultIsNotTrusted(t *testing.T) {
	client := &fakeSearcher{handler: func(string) (Hit, bool, error) {
		// Warsaw coordinates: well outside the Łódź box.
		return Hit{Lat: 52.23, Lng: 21.01, Importance: 0.9}, true, nil
	}}
	g, store := newTestGeocoder(t, client)

	result, err := g.Address(context.Background(), "jakiś plac bez nazwy")
	require.NoError(t, err)
	require.InDelta(t, 51.7592, result.Lat, 1e-9, "must fall back to the city center")
	require.Equal(t, 0, store.Len(), "out-of-bounds result must not be cached")
}

func TestTransportErrorYieldsNilNotFallback(t *testing.T) {
	client := &fakeSearcher{handler: func(string) (Hit, bool, error) {
		return Hit{}, false, errors.New("connection reset")
	}}
	g, _ := newTestGeocoder(t, client)

	result, err := g.Address(context.Background(), "ul. Piotrkowska 104")
	require.Error(t, err)
	require.Nil(t, result)
}

func TestEmptyAddressIsNil(t *testing.T) {
	g, _ := newTestGeocoder(t, &fakeSearcher{})
	result, err := g.Address(context.Background(), "  ")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestProjectsBatch(t *testing.T) {
	client := &fakeSearcher{handler: func(string) (Hit, bool, error) {
		return Hit{Lat: 51.75, Lng: 19.46, Importance: 0.7}, true, nil
	}}
	g, _ := newTestGeocoder(t, client)

	widgetLat, widgetLng := 51.78, 19.41
	records := []budget.ProjectRecord{
		{ID: "P1-1", LokalizacjaTekst: "ul. Piotrkowska 104"},
		{ID: "P1-2"},
		{
			ID:        "P1-3",
			StatusGeo: budget.GeocodeSuccess,
			Lat:       &widgetLat,
			Lng:       &widgetLng,
		},
	}

	geocoded, failed, err := g.Projects(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, 2, geocoded)
	require.Equal(t, 1, failed)

	require.Equal(t, budget.GeocodeSuccess, records[0].StatusGeo)
	require.NotNil(t, records[0].Lat)
	require.NotNil(t, records[0].Confidence)
	require.Contains(t, records[0].LinkGoogleMaps, "google.com/maps?q=")
	require.Equal(t, &budget.StreetView{Heading: 0, Pitch: 0, FOV: 90}, records[0].StreetView)

	require.Equal(t, budget.GeocodeNoAddress, records[1].StatusGeo)
	require.False(t, records[1].HasCoordinates())

	// Map-widget coordinates are kept untouched.
	require.Equal(t, 1, client.calls)
	require.InDelta(t, widgetLat, *records[2].Lat, 1e-9)
}

func TestProjectsBatchTransportFailure(t *testing.T) {
	client := &fakeSearcher{handler: func(string) (Hit, bool, error) {
		return Hit{}, false, errors.New("timeout")
	}}
	g, _ := newTestGeocoder(t, client)

	records := []budget.ProjectRecord{{ID: "P2-1", LokalizacjaTekst: "ul. Zgierska 1"}}
	geocoded, failed, err := g.Projects(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, 0, geocoded)
	require.Equal(t, 1, failed)
	require.Equal(t, budget.GeocodeFailed, records[0].StatusGeo)
}
