package heuristics

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/lmokoena/marketscout/internal/models"
)

// EstimateMonthlySales maps a best-seller rank to a rough monthly unit
// estimate. Buckets are calibrated for the SA market; within a bucket the
// value is drawn uniformly at random. The category parameter is accepted
// for future category-specific curves but the current buckets ignore it.
func EstimateMonthlySales(bsr int, category string) int {
	if bsr <= 0 {
		return 0
	}
	switch {
	case bsr < 100:
		return 500 + rand.Intn(200)
	case bsr < 500:
		return 200 + rand.Intn(100)
	case bsr < 2000:
		return 50 + rand.Intn(50)
	case bsr < 10000:
		return 10 + rand.Intn(20)
	default:
		return rand.Intn(5)
	}
}

// LQSInput carries the five listing signals the quality score tracks.
type LQSInput struct {
	Title             string
	Rating            string
	ReviewCount       string
	ImageCount        int
	BulletPointsCount int
}

// CalculateLQS scores listing quality on a 1-10 scale from image count,
// rating, review volume, bullet points, and title length. Each signal
// contributes 0, 1, or 2 points; the sum is clamped to [1, 10].
func CalculateLQS(in LQSInput) int {
	score := 0

	if in.ImageCount >= 7 {
		score += 2
	} else if in.ImageCount >= 3 {
		score++
	}

	rating, _ := strconv.ParseFloat(strings.TrimSpace(in.Rating), 64)
	if rating >= 4.5 {
		score += 2
	} else if rating >= 4.0 {
		score++
	}

	reviews, _ := strconv.Atoi(strings.TrimSpace(in.ReviewCount))
	if reviews >= 1000 {
		score += 2
	} else if reviews >= 100 {
		score++
	}

	if in.BulletPointsCount >= 5 {
		score += 2
	} else if in.BulletPointsCount >= 3 {
		score++
	}

	if len(in.Title) >= 150 {
		score += 2
	} else if len(in.Title) >= 80 {
		score++
	}

	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// Enrich fills the derived fields of a snapshot in place: sales velocity,
// monthly revenue, its display text, and the listing quality score.
func Enrich(p *models.ProductSnapshot) {
	p.SalesVelocity = EstimateMonthlySales(p.BSR, p.Category)
	p.MonthlyRevenue = float64(p.SalesVelocity) * p.Price
	p.MonthlyRevenueText = "R " + formatAmount(p.MonthlyRevenue)
	p.LQS = CalculateLQS(LQSInput{
		Title:             p.Title,
		Rating:            p.Rating,
		ReviewCount:       p.ReviewCount,
		ImageCount:        p.ImageCount,
		BulletPointsCount: p.BulletPointsCount,
	})
}

// formatAmount renders an amount with two decimals and comma separators,
// e.g. 1234567.5 -> "1,234,567.50".
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.Index(s, ".")
	intPart, fracPart := s[:dot], s[dot:]

	neg := false
	if strings.HasPrefix(intPart, "-") {
		neg = true
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
