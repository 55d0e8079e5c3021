package scraper

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/semaphore"

	"github.com/lmokoena/marketscout/internal/browser"
	"github.com/lmokoena/marketscout/internal/config"
	"github.com/lmokoena/marketscout/internal/models"
)

// Extractor turns a live product page into a normalized snapshot. Each
// marketplace registers one implementation; adding a site means
// registering a new entry, not editing a dispatch branch.
type Extractor interface {
	Name() string
	Matches(url string) bool
	Extract(ctx context.Context, page playwright.Page) (*models.ProductSnapshot, error)
}

// Service owns the full scrape pipeline: routing, browser lifecycle,
// session choreography, and extraction. Every request gets its own
// browser instance; a weighted semaphore bounds how many run at once.
type Service struct {
	extractors    []Extractor
	choreographer *browser.Choreographer
	sem           *semaphore.Weighted
	cfg           config.ScraperConfig
	headless      bool
	logger        *slog.Logger
}

func NewService(cfg config.ScraperConfig, headless bool) *Service {
	s := &Service{
		choreographer: browser.NewChoreographer(cfg.NavigationTimeout),
		sem:           semaphore.NewWeighted(int64(cfg.ConcurrentLimit)),
		cfg:           cfg,
		headless:      headless,
		logger:        slog.Default().With("component", "scraper"),
	}

	s.Register(NewTakealotExtractor(cfg.LandmarkTimeout))
	s.Register(NewAmazonExtractor(cfg.LandmarkTimeout))

	return s
}

// Register appends an extractor to the routing table. Registration order
// is match order.
func (s *Service) Register(e Extractor) {
	s.extractors = append(s.extractors, e)
}

// Route returns the extractor claiming the URL, or an UnsupportedSource
// error when none does.
func (s *Service) Route(url string) (Extractor, error) {
	for _, e := range s.extractors {
		if e.Matches(url) {
			return e, nil
		}
	}
	return nil, models.NewScrapeError(models.ErrUnsupportedSource,
		"no extractor registered for "+url, nil)
}

// Extract runs the full pipeline for one product URL. The entire request,
// choreography included, runs under a single deadline, and the browser is
// torn down on every path.
func (s *Service) Extract(ctx context.Context, url string) (*models.ProductSnapshot, error) {
	ext, err := s.Route(url)
	if err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, classify(err)
	}
	defer s.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	scrapeID := uuid.NewString()
	logger := s.logger.With("scrapeId", scrapeID, "site", ext.Name(), "url", url)
	logger.Info("starting scrape")

	b, err := browser.New(&browser.Options{Headless: s.headless})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to launch browser", err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to create page", err)
	}
	defer page.Close()

	if err := s.choreographer.Run(ctx, page, url); err != nil {
		logger.Error("choreography failed", "error", err)
		return nil, classify(err)
	}

	snap, err := ext.Extract(ctx, page)
	if err != nil {
		logger.Error("extraction failed", "error", err)
		return nil, classify(err)
	}

	logger.Info("scrape complete",
		"title", snap.Title,
		"price", snap.Price,
		"recommendations", len(snap.Recommendations),
	)
	return snap, nil
}

// classify guarantees the boundary only ever surfaces ScrapeError values.
func classify(err error) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return models.NewScrapeError(models.ErrExtractionFailed, "failed to scrape product", err)
}

// waitForLandmark blocks until a required page element is attached, up to
// the extractor's landmark timeout.
func waitForLandmark(page playwright.Page, selector string, timeoutMs float64) error {
	err := page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(timeoutMs),
	})
	if err != nil {
		return models.NewScrapeError(models.ErrElementWaitTimeout,
			"landmark "+selector+" never appeared", err)
	}
	return nil
}
