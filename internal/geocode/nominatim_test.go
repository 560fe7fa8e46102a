package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientSearchParsesBestMatch(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		require.Equal(t, "json", r.URL.Query().Get("format"))
		require.Equal(t, "1", r.URL.Query().Get("limit"))
		require.Equal(t, "pl", r.URL.Query().Get("countrycodes"))
		require.Equal(t, "19.2,51.6,19.7,51.9", r.URL.Query().Get("viewbox"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"51.7769","lon":"19.4547","display_name":"Piotrkowska, Łódź","importance":0.72}]`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:     srv.URL,
		Email:       "admin@budzetobywatelski.pl",
		CountryCode: "pl",
		Viewbox:     "19.2,51.6,19.7,51.9",
	})

	hit, found, err := client.Search(context.Background(), "ulica Piotrkowska 104, Łódź, Poland")
	require.NoError(t, err)
	require.True(t, found)
	require.InDelta(t, 51.7769, hit.Lat, 1e-9)
	require.InDelta(t, 19.4547, hit.Lng, 1e-9)
	require.InDelta(t, 0.72, hit.Importance, 1e-9)
	require.Equal(t, "ulica Piotrkowska 104, Łódź, Poland", gotQuery)
	require.Contains(t, gotUA, "admin@budzetobywatelski.pl")
}

func TestClientSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, CountryCode: "pl"})
	_, found, err := client.Search(context.Background(), "nigdzie")
	require.NoError(t, err)
	require.False(t, found)
}

func TestClientSearchDefaultsMissingImportance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"51.76","lon":"19.46","display_name":"Łódź"}]`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, CountryCode: "pl"})
	hit, found, err := client.Search(context.Background(), "Łódź")
	require.NoError(t, err)
	require.True(t, found)
	require.InDelta(t, 0.5, hit.Importance, 1e-9)
}

func TestClientSearchServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, CountryCode: "pl"})
	_, _, err := client.Search(context.Background(), "ulica Piotrkowska")
	require.Error(t, err)
}
