package geocode

import (
	"fmt"
	"strings"

	"github.com/budzetlodz/budzetmapa/internal/budget"
)

// Report summarizes geocoding quality for a generated dataset.
type Report struct {
	Total        int
	Success      int
	Failed       int
	NoAddress    int
	FallbackPins []string
	OutOfBounds  []string
	Invalid      []string
}

// BuildReport inspects every record against the city bounding box and the
// record invariants.
func BuildReport(ds budget.Dataset, cfg Config) Report {
	r := Report{Total: len(ds.Projects)}
	for _, p := range ds.Projects {
		switch p.StatusGeo {
		case budget.GeocodeSuccess:
			r.Success++
		case budget.GeocodeFailed:
			r.Failed++
		case budget.GeocodeNoAddress:
			r.NoAddress++
		}
		if err := p.Validate(); err != nil {
			r.Invalid = append(r.Invalid, p.ID)
			continue
		}
		if p.Confidence != nil && *p.Confidence <= fallbackConfidence {
			r.FallbackPins = append(r.FallbackPins, p.ID)
		}
		if p.HasCoordinates() {
			lat, lng := *p.Lat, *p.Lng
			if lat < cfg.MinLat || lat > cfg.MaxLat || lng < cfg.MinLng || lng > cfg.MaxLng {
				r.OutOfBounds = append(r.OutOfBounds, p.ID)
			}
		}
	}
	return r
}

// Summary renders the report as printable lines.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "projects: %d\n", r.Total)
	fmt.Fprintf(&b, "geocoded: %d\n", r.Success)
	fmt.Fprintf(&b, "failed: %d\n", r.Failed)
	fmt.Fprintf(&b, "no address: %d\n", r.NoAddress)
	fmt.Fprintf(&b, "city-center fallback pins: %d\n", len(r.FallbackPins))
	if len(r.FallbackPins) > 0 {
		fmt.Fprintf(&b, "  %s\n", strings.Join(r.FallbackPins, ", "))
	}
	if len(r.OutOfBounds) > 0 {
		fmt.Fprintf(&b, "out of bounds: %s\n", strings.Join(r.OutOfBounds, ", "))
	}
	if len(r.Invalid) > 0 {
		fmt.Fprintf(&b, "invariant violations: %s\n", strings.Join(r.Invalid, ", "))
	}
	return b.String()
}
