package browser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/lmokoena/marketscout/internal/models"
)

// Choreographer drives a fixed pre-extraction browsing sequence that
// mimics a human reading a listing: a pause before navigating, pointer
// movement, incremental scrolling with uneven pauses, and a dwell at a
// natural reading position. The same sequence runs for every site.
type Choreographer struct {
	navigationTimeout time.Duration
	logger            *slog.Logger
}

func NewChoreographer(navigationTimeout time.Duration) *Choreographer {
	if navigationTimeout <= 0 {
		navigationTimeout = 60 * time.Second
	}
	return &Choreographer{
		navigationTimeout: navigationTimeout,
		logger:            slog.Default().With("component", "choreography"),
	}
}

var mouseWaypoints = [][2]float64{
	{100, 100},
	{400, 300},
	{800, 500},
}

const (
	scrollSteps     = 8
	scrollIncrement = 200
	readingPosition = 600
)

// Run navigates to the target URL and performs the full humanization
// sequence. A navigation that never reaches network quiescence fails
// with a NavigationTimeout scrape error; any other step failure
// propagates as-is. The choreography is never retried.
func (c *Choreographer) Run(ctx context.Context, page playwright.Page, url string) error {
	c.logger.Debug("waiting before navigation", "url", url)
	if err := sleepJitter(ctx, 2000*time.Millisecond, 4000*time.Millisecond); err != nil {
		return err
	}

	_, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(c.navigationTimeout.Milliseconds())),
	})
	if err != nil {
		return models.NewScrapeError(models.ErrNavigationTimeout, "page never reached network quiescence", err)
	}

	c.logger.Debug("simulating mouse movement")
	for _, wp := range mouseWaypoints {
		if err := page.Mouse().Move(wp[0], wp[1]); err != nil {
			return err
		}
		if err := sleepJitter(ctx, 300*time.Millisecond, 800*time.Millisecond); err != nil {
			return err
		}
	}

	c.logger.Debug("scrolling like a human")
	for i := 0; i < scrollSteps; i++ {
		if _, err := page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", scrollIncrement)); err != nil {
			return err
		}
		if err := sleepJitter(ctx, 400*time.Millisecond, 1200*time.Millisecond); err != nil {
			return err
		}
	}

	if _, err := page.Evaluate(fmt.Sprintf("window.scrollTo(0, %d)", readingPosition)); err != nil {
		return err
	}

	// Reading time before extraction starts.
	return sleepJitter(ctx, 2000*time.Millisecond, 4000*time.Millisecond)
}

// sleepJitter pauses for a uniformly random duration in [min, max),
// honoring context cancellation.
func sleepJitter(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
