package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/lmokoena/marketscout/internal/heuristics"
	"github.com/lmokoena/marketscout/internal/models"
	"github.com/lmokoena/marketscout/internal/parser"
)

const amazonLandmark = "#productTitle, h1.product-title-word-break"

// AmazonExtractor is DOM-only: it parses the rendered page HTML with
// multiple fallback selectors per field. No single field failure aborts
// the extraction; only a missing title landmark is fatal.
type AmazonExtractor struct {
	landmarkTimeout time.Duration
	parser          *parser.AmazonParser
	logger          *slog.Logger
}

func NewAmazonExtractor(landmarkTimeout time.Duration) *AmazonExtractor {
	return &AmazonExtractor{
		landmarkTimeout: landmarkTimeout,
		parser:          parser.NewAmazonParser(),
		logger:          slog.Default().With("component", "amazon"),
	}
}

func (e *AmazonExtractor) Name() string { return "Amazon" }

func (e *AmazonExtractor) Matches(url string) bool {
	return strings.Contains(url, "amazon")
}

func (e *AmazonExtractor) Extract(ctx context.Context, page playwright.Page) (*models.ProductSnapshot, error) {
	if err := waitForLandmark(page, amazonLandmark, float64(e.landmarkTimeout.Milliseconds())); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to read page content", err)
	}

	snap, err := e.parser.ParseProduct(html)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to parse Amazon page", err)
	}

	if snap.PriceText == "" {
		snap.PriceText = "0"
	}

	// The static HTML may declare no usable image; ask the live page for
	// the first rendered <img> wider than 200px that is not a tracking
	// pixel.
	if snap.Image == "" {
		snap.Image = e.renderedImageFallback(page)
	}

	heuristics.Enrich(snap)
	return snap, nil
}

func (e *AmazonExtractor) renderedImageFallback(page playwright.Page) string {
	result, err := page.Evaluate(`() => {
		const allImgs = Array.from(document.querySelectorAll('img'));
		const largeImg = allImgs.find(img => img.width > 200 && !img.src.includes('pixel'));
		return largeImg ? largeImg.src : '';
	}`)
	if err != nil {
		e.logger.Warn("rendered image fallback failed", "error", err)
		return ""
	}
	src, _ := result.(string)
	return src
}
