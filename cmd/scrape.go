package cmd

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/cache"
	"github.com/budzetlodz/budzetmapa/internal/fetch"
	"github.com/budzetlodz/budzetmapa/internal/geocode"
	"github.com/budzetlodz/budzetmapa/internal/output"
	"github.com/budzetlodz/budzetmapa/internal/ratelimit"
	"github.com/budzetlodz/budzetmapa/internal/scrape"
	"github.com/budzetlodz/budzetmapa/internal/sitegen"
)

func newScrapeCmd() *cobra.Command {
	var (
		skipGeocode bool
		clearCache  bool
		noProgress  bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Crawl the portal, geocode projects and write the dataset.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runID := uuid.NewString()
			logger.Info("starting run", zap.String("run_id", runID))

			scrapeCache := cache.New(filepath.Join(cfg.Output.CacheDir, "scrape-cache.json"), logger)
			geocodeCache := cache.New(filepath.Join(cfg.Output.CacheDir, "geocode-cache.json"), logger)
			if clearCache {
				scrapeCache.Clear()
				geocodeCache.Clear()
				logger.Info("caches cleared")
			}

			fetcher := fetch.New(fetch.Config{
				UserAgent: cfg.Portal.UserAgent,
				Timeout:   cfg.PortalTimeout(),
			}, logger)
			portalLimiter := ratelimit.New(cfg.PortalDelay())

			discoverer := scrape.NewDiscoverer(fetcher, portalLimiter, scrape.DiscovererConfig{
				BaseURL:     cfg.Portal.BaseURL,
				ListingPath: cfg.Portal.ListingPath,
				MaxPages:    cfg.Portal.MaxListingPages,
			}, logger)
			extractor := scrape.NewExtractor(fetcher, portalLimiter, scrapeCache, logger)
			scraper := scrape.NewScraper(discoverer, extractor, scrape.ScraperConfig{
				CheckpointInterval: cfg.Portal.CheckpointInterval,
				CheckpointDir:      cfg.Output.CacheDir,
				RunID:              runID,
				ShowProgress:       !noProgress,
			}, logger)

			records, err := scraper.Run(ctx)
			if err != nil {
				return fmt.Errorf("scrape portal: %w", err)
			}

			writer := output.NewWriter(cfg.Output.DataDir, logger)
			if err := writer.WriteRaw(records); err != nil {
				return fmt.Errorf("write raw snapshot: %w", err)
			}

			if !skipGeocode {
				client := geocode.NewClient(geocode.ClientConfig{
					BaseURL:     cfg.Geocoder.BaseURL,
					Email:       cfg.Geocoder.Email,
					CountryCode: cfg.Geocoder.CountryCode,
					Viewbox: fmt.Sprintf("%g,%g,%g,%g",
						cfg.Geocoder.MinLng, cfg.Geocoder.MinLat,
						cfg.Geocoder.MaxLng, cfg.Geocoder.MaxLat),
					Timeout: cfg.GeocoderTimeout(),
				})
				geocoder := geocode.New(client, geocodeCache, ratelimit.New(cfg.GeocoderDelay()), geocodeConfig(!noProgress), logger)

				geocoded, failed, err := geocoder.Projects(ctx, records)
				if err != nil {
					return fmt.Errorf("geocode projects: %w", err)
				}
				logger.Info("geocoding summary",
					zap.Int("geocoded", geocoded),
					zap.Int("failed", failed),
				)
			}

			ds := output.BuildDataset(records, runID, time.Now())
			if err := writer.WriteDataset(ds); err != nil {
				return fmt.Errorf("write dataset: %w", err)
			}

			generator := sitegen.NewGenerator(cfg.Output.SiteURL, cfg.Output.DataDir, logger)
			if err := generator.Run(ds); err != nil {
				return fmt.Errorf("generate site files: %w", err)
			}

			logger.Info("run completed",
				zap.String("run_id", runID),
				zap.Int("projects", ds.Metadata.TotalProjects),
				zap.Int("geocoded", ds.Metadata.Geocoded),
				zap.Int("failed", ds.Metadata.Failed),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipGeocode, "skip-geocode", false, "scrape only, leave records ungeocoded")
	cmd.Flags().BoolVar(&clearCache, "clear-cache", false, "drop the scrape and geocode caches before running")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable progress bars")

	return cmd
}

func geocodeConfig(showProgress bool) geocode.Config {
	return geocode.Config{
		City:         cfg.Geocoder.City,
		Country:      cfg.Geocoder.Country,
		MinLat:       cfg.Geocoder.MinLat,
		MaxLat:       cfg.Geocoder.MaxLat,
		MinLng:       cfg.Geocoder.MinLng,
		MaxLng:       cfg.Geocoder.MaxLng,
		CenterLat:    cfg.Geocoder.CenterLat,
		CenterLng:    cfg.Geocoder.CenterLng,
		ShowProgress: showProgress,
	}
}
