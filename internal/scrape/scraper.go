package scrape

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/budget"
)

// ErrNoProjects is returned when discovery yields zero detail links; that
// points at portal markup drift rather than a slow day at city hall.
var ErrNoProjects = errors.New("no project links discovered")

// ScraperConfig controls the orchestrated crawl.
type ScraperConfig struct {
	// CheckpointInterval is the number of completed detail pages between
	// progress snapshots. Zero or negative disables checkpointing.
	CheckpointInterval int
	// CheckpointDir is where progress.json lives during a run.
	CheckpointDir string
	RunID         string
	ShowProgress  bool
}

// Scraper runs the whole portal crawl: listing discovery followed by a
// sequential pass over every detail page.
type Scraper struct {
	discoverer *Discoverer
	extractor  *Extractor
	cfg        ScraperConfig
	logger     *zap.Logger
}

// NewScraper wires the discovery and extraction stages together.
func NewScraper(discoverer *Discoverer, extractor *Extractor, cfg ScraperConfig, logger *zap.Logger) *Scraper {
	return &Scraper{
		discoverer: discoverer,
		extractor:  extractor,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run crawls the portal and returns every extracted record. Individual detail
// failures are logged and skipped; only an empty discovery or a cancelled
// context fails the run.
func (s *Scraper) Run(ctx context.Context) ([]budget.ProjectRecord, error) {
	links := s.discoverer.Run(ctx)
	if len(links) == 0 {
		return nil, ErrNoProjects
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Info("fetching detail pages", zap.Int("count", len(links)))

	var bar *progressbar.ProgressBar
	if s.cfg.ShowProgress {
		bar = progressbar.Default(int64(len(links)), "scraping")
	}

	records := make([]budget.ProjectRecord, 0, len(links))
	for i, link := range links {
		if bar != nil {
			_ = bar.Add(1)
		}
		if err := ctx.Err(); err != nil {
			return records, err
		}

		record, err := s.extractor.Project(ctx, link)
		if err != nil {
			s.logger.Warn("skipping project",
				zap.String("url", link.URL),
				zap.Error(err),
			)
			continue
		}
		records = append(records, *record)

		if s.cfg.CheckpointInterval > 0 && (i+1)%s.cfg.CheckpointInterval == 0 {
			s.checkpoint(records, i+1, len(links))
		}
	}

	s.logger.Info("scrape completed",
		zap.Int("discovered", len(links)),
		zap.Int("extracted", len(records)),
	)
	return records, nil
}

func (s *Scraper) checkpoint(records []budget.ProjectRecord, completed, total int) {
	path := filepath.Join(s.cfg.CheckpointDir, "progress.json")
	cp := Checkpoint{
		RunID:     s.cfg.RunID,
		Completed: completed,
		Total:     total,
		Projects:  records,
	}
	if err := WriteCheckpoint(path, cp); err != nil {
		s.logger.Warn("checkpoint write failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Debug("checkpoint written",
		zap.Int("completed", completed),
		zap.Int("total", total),
	)
}
