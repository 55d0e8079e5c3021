package models

import (
	"time"
)

// ProductSnapshot is the normalized output every extractor produces,
// regardless of source site. All fields besides title and price are
// optional at the source; extractors fill sentinel defaults so the
// shape is always complete for downstream consumers.
type ProductSnapshot struct {
	Title              string           `json:"title"`
	Price              float64          `json:"price"`
	PriceText          string           `json:"priceText"`
	Image              string           `json:"image"`
	Rating             string           `json:"rating"`
	ReviewCount        string           `json:"reviewCount"`
	Category           string           `json:"category"`
	SoldBy             string           `json:"soldBy"`
	Is1P               bool             `json:"is1P"`
	BSR                int              `json:"bsr"`
	Source             string           `json:"source"`
	SellerCount        int              `json:"sellerCount"`
	Fulfillment        string           `json:"fulfillment"`
	Dimensions         string           `json:"dimensions"`
	Weight             string           `json:"weight"`
	DateFirstAvailable string           `json:"dateFirstAvailable,omitempty"`
	ImageCount         int              `json:"imageCount"`
	BulletPointsCount  int              `json:"bulletPointsCount"`
	Recommendations    []Recommendation `json:"recommendations"`
	Promotion          *Promotion       `json:"promotion,omitempty"`
	SalesVelocity      int              `json:"salesVelocity"`
	MonthlyRevenue     float64          `json:"monthlyRevenue"`
	MonthlyRevenueText string           `json:"monthlyRevenueText,omitempty"`
	LQS                int              `json:"lqs"`
	ScrapedAt          time.Time        `json:"scrapedAt"`
}

// Recommendation is a related listing surfaced by the source site's own
// recommendation feed. Only the API-backed extractor path produces these.
type Recommendation struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	URL         string `json:"url"`
	ReviewCount string `json:"reviewCount"`
	Rating      string `json:"rating"`
}

// Promotion aggregates every deal signal found on a listing. DealTags may
// contain duplicates when several signals repeat the same tag.
type Promotion struct {
	IsOnPromotion bool     `json:"isOnPromotion"`
	DealTags      []string `json:"dealTags"`
	SavingsText   string   `json:"savingsText"`
}

// HistoryEntry is one daily datapoint in a product's tracked time series.
type HistoryEntry struct {
	Date        time.Time `json:"date"`
	Price       float64   `json:"price"`
	BSR         int       `json:"bsr"`
	ReviewCount int       `json:"reviewCount"`
	Rating      float64   `json:"rating"`
}

// NewProductSnapshot returns a snapshot pre-filled with the sentinel
// defaults extractors fall back to when a field cannot be read.
func NewProductSnapshot(source string) *ProductSnapshot {
	return &ProductSnapshot{
		Rating:          "0",
		ReviewCount:     "0",
		Category:        "Unknown",
		Source:          source,
		SellerCount:     1,
		Dimensions:      "--",
		Weight:          "--",
		Recommendations: make([]Recommendation, 0),
		ScrapedAt:       time.Now(),
	}
}
