package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/lmokoena/marketscout/internal/heuristics"
	"github.com/lmokoena/marketscout/internal/models"
)

const (
	takealotLandmark = ".core, .product-title, h1"
	takealotAPIBase  = "https://api.takealot.com/rest/v-1-13-0/product-details"
)

var plidPattern = regexp.MustCompile(`PLID\d+`)

// TakealotExtractor prefers Takealot's internal product-details endpoint,
// fetched from inside the page context so the request inherits cookies
// and origin, and falls back to minimal DOM scraping when the listing
// identifier or the endpoint is unavailable.
type TakealotExtractor struct {
	landmarkTimeout time.Duration
	logger          *slog.Logger
}

func NewTakealotExtractor(landmarkTimeout time.Duration) *TakealotExtractor {
	return &TakealotExtractor{
		landmarkTimeout: landmarkTimeout,
		logger:          slog.Default().With("component", "takealot"),
	}
}

func (e *TakealotExtractor) Name() string { return "Takealot" }

func (e *TakealotExtractor) Matches(url string) bool {
	return strings.Contains(url, "takealot.com")
}

func (e *TakealotExtractor) Extract(ctx context.Context, page playwright.Page) (*models.ProductSnapshot, error) {
	if err := waitForLandmark(page, takealotLandmark, float64(e.landmarkTimeout.Milliseconds())); err != nil {
		return nil, err
	}

	if plid := plidPattern.FindString(page.URL()); plid != "" {
		snap, err := e.extractViaAPI(page, plid)
		if err == nil {
			return snap, nil
		}
		e.logger.Warn("api extraction failed, falling back to page scrape",
			"plid", plid, "error", err)
	}

	return e.extractFromPage(page)
}

// DetailsURL builds the internal data-endpoint target for a listing
// identifier.
func DetailsURL(plid string) string {
	return fmt.Sprintf("%s/%s?platform=desktop", takealotAPIBase, plid)
}

// RecommendationsURL builds the recommendations feed target for a
// listing identifier.
func RecommendationsURL(plid string) string {
	return fmt.Sprintf("%s/%s/recommendations?platform=desktop", takealotAPIBase, plid)
}

// takealotFetchScript runs inside the page and fetches product details
// and recommendations concurrently. The recommendations request degrades
// to an empty shape on failure; a details failure aborts the API path.
const takealotFetchScript = `async ([detailsUrl, recsUrl]) => {
	try {
		const headers = {
			'accept': 'application/json, text/plain, */*',
			'x-platform': 'desktop'
		};
		const [details, recommendations] = await Promise.all([
			fetch(detailsUrl, { headers }).then(r => r.json()),
			fetch(recsUrl, { headers }).then(r => r.json()).catch(() => ({ sections: [] }))
		]);
		return JSON.stringify({ details, recommendations });
	} catch (e) {
		return JSON.stringify({ error: e.message });
	}
}`

func (e *TakealotExtractor) extractViaAPI(page playwright.Page, plid string) (*models.ProductSnapshot, error) {
	result, err := page.Evaluate(takealotFetchScript, []string{DetailsURL(plid), RecommendationsURL(plid)})
	if err != nil {
		return nil, fmt.Errorf("in-page fetch failed: %w", err)
	}

	raw, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected evaluate result %T", result)
	}

	payload, err := decodeTakealotPayload([]byte(raw))
	if err != nil {
		return nil, err
	}

	return buildTakealotSnapshot(payload), nil
}

// extractFromPage is the minimal DOM fallback: title, price, and image
// via generic selectors, everything else sentinel defaults. The fallback
// never reaches the heuristic estimator.
func (e *TakealotExtractor) extractFromPage(page playwright.Page) (*models.ProductSnapshot, error) {
	result, err := page.Evaluate(`() => {
		const getPrice = () => {
			const el = document.querySelector('.buybox-price, .price, [data-testid="price"]');
			return el ? parseFloat(el.textContent.replace(/[^0-9.]/g, '')) : 0;
		};
		return JSON.stringify({
			title: document.querySelector('h1')?.textContent?.trim() || 'Unknown',
			price: getPrice() || 0,
			image: document.querySelector('img.gallery-image, [data-testid="product-image"]')?.src || ''
		});
	}`)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to scrape Takealot", err)
	}

	raw, ok := result.(string)
	if !ok {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to scrape Takealot",
			fmt.Errorf("unexpected evaluate result %T", result))
	}

	var fields struct {
		Title string  `json:"title"`
		Price float64 `json:"price"`
		Image string  `json:"image"`
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, models.NewScrapeError(models.ErrExtractionFailed, "failed to scrape Takealot", err)
	}

	snap := models.NewProductSnapshot("Takealot")
	snap.Title = fields.Title
	snap.Price = fields.Price
	snap.PriceText = "R " + formatNumber(fields.Price)
	snap.Image = fields.Image
	snap.SoldBy = "Takealot"
	return snap, nil
}

// Takealot product-details response, reduced to the fields the snapshot
// needs.

type takealotPayload struct {
	Error           string           `json:"error"`
	Details         *takealotDetails `json:"details"`
	Recommendations json.RawMessage  `json:"recommendations"`
}

type takealotDetails struct {
	Error              json.RawMessage      `json:"error"`
	Core               *takealotCore        `json:"core"`
	Gallery            *takealotGallery     `json:"gallery"`
	Buybox             *takealotBuybox      `json:"buybox"`
	Promotions         []takealotPromo      `json:"promotions"`
	Badges             *takealotBadges      `json:"badges"`
	ProductInformation *takealotProductInfo `json:"product_information"`
	Rating             json.Number          `json:"rating"`
	ReviewCount        json.Number          `json:"review_count"`
	SalesRank          int                  `json:"sales_rank"`
}

type takealotCore struct {
	Title            string `json:"title"`
	ShortDescription string `json:"short_description"`
	Category         *struct {
		Name string `json:"name"`
	} `json:"category"`
}

type takealotGallery struct {
	Images []string `json:"images"`
}

type takealotBuybox struct {
	Items            []takealotOffer `json:"items"`
	TotalOffersCount int             `json:"total_offers_count"`
}

type takealotOffer struct {
	Price             float64         `json:"price"`
	UnadjustedPrice   float64         `json:"unadjusted_price"`
	SavingsPercentage float64         `json:"savings_percentage"`
	Promotions        []takealotPromo `json:"promotions"`
	Seller            *struct {
		Name string `json:"name"`
	} `json:"seller"`
}

type takealotPromo struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type takealotBadges struct {
	Items []takealotBadge `json:"items"`
}

type takealotBadge struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type takealotProductInfo struct {
	TabularSpecifications []struct {
		Rows []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"rows"`
	} `json:"tabular_specifications"`
}

type takealotRecItem struct {
	Title       string      `json:"title"`
	Price       json.Number `json:"price"`
	ImageURL    string      `json:"image_url"`
	Slug        string      `json:"slug"`
	PLID        flexString  `json:"plid"`
	ReviewCount json.Number `json:"review_count"`
	Rating      json.Number `json:"rating"`
}

// flexString tolerates the feed returning identifiers as either strings
// or bare numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

func decodeTakealotPayload(raw []byte) (*takealotPayload, error) {
	var payload takealotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode details payload: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("in-page fetch error: %s", payload.Error)
	}
	d := payload.Details
	if d == nil || d.Core == nil || (len(d.Error) > 0 && string(d.Error) != "null") {
		return nil, fmt.Errorf("details response missing expected root shape")
	}
	return &payload, nil
}

// buildTakealotSnapshot normalizes the internal API response and hands
// the result to the heuristic estimator.
func buildTakealotSnapshot(payload *takealotPayload) *models.ProductSnapshot {
	d := payload.Details
	snap := models.NewProductSnapshot("Takealot")

	gallery := d.Gallery
	if gallery == nil {
		gallery = &takealotGallery{}
	}

	var firstItem takealotOffer
	totalOffers := 0
	if d.Buybox != nil {
		totalOffers = d.Buybox.TotalOffersCount
		if len(d.Buybox.Items) > 0 {
			firstItem = d.Buybox.Items[0]
		}
	}

	if len(gallery.Images) > 0 {
		snap.Image = NormalizeImageURL(gallery.Images[0])
	}

	snap.Title = d.Core.Title
	snap.Price = firstItem.Price
	if snap.Price > 0 {
		snap.PriceText = "R " + formatNumber(snap.Price)
	} else {
		snap.PriceText = "N/A"
	}

	if r := d.Rating.String(); r != "" {
		snap.Rating = r
	}
	if rc := d.ReviewCount.String(); rc != "" {
		snap.ReviewCount = rc
	}
	if d.Core.Category != nil && d.Core.Category.Name != "" {
		snap.Category = d.Core.Category.Name
	}

	sellerName := "Takealot"
	if firstItem.Seller != nil && firstItem.Seller.Name != "" {
		sellerName = firstItem.Seller.Name
	}
	snap.SoldBy = sellerName
	snap.Is1P = strings.Contains(strings.ToLower(sellerName), "takealot")
	if snap.Is1P {
		snap.Fulfillment = "Takealot"
	} else {
		snap.Fulfillment = "3rd Party"
	}

	snap.BSR = d.SalesRank
	if totalOffers > 0 {
		snap.SellerCount = totalOffers
	}

	snap.Promotion = buildPromotion(d, firstItem)

	if d.ProductInformation != nil && len(d.ProductInformation.TabularSpecifications) > 0 {
		for _, row := range d.ProductInformation.TabularSpecifications[0].Rows {
			name := strings.ToLower(row.Name)
			if snap.Weight == "--" && strings.Contains(name, "weight") {
				snap.Weight = row.Value
			}
			if snap.Dimensions == "--" && strings.Contains(name, "dimensions") {
				snap.Dimensions = row.Value
			}
		}
	}

	snap.ImageCount = len(gallery.Images)
	for _, line := range strings.Split(d.Core.ShortDescription, "\n") {
		if strings.TrimSpace(line) != "" {
			snap.BulletPointsCount++
		}
	}

	snap.Recommendations = buildRecommendations(payload.Recommendations)

	heuristics.Enrich(snap)
	return snap
}

// buildPromotion folds every deal signal into one record: listing-level
// promotions, offer-level promotions, the "saving" badge, and a crossed-
// out price higher than the current one.
func buildPromotion(d *takealotDetails, firstItem takealotOffer) *models.Promotion {
	allPromos := append(append([]takealotPromo{}, d.Promotions...), firstItem.Promotions...)

	var savingBadge *takealotBadge
	if d.Badges != nil {
		for i := range d.Badges.Items {
			if d.Badges.Items[i].Type == "saving" {
				savingBadge = &d.Badges.Items[i]
				break
			}
		}
	}

	promo := &models.Promotion{
		IsOnPromotion: len(allPromos) > 0 ||
			firstItem.UnadjustedPrice > firstItem.Price ||
			savingBadge != nil,
		DealTags: make([]string, 0),
	}

	for _, p := range allPromos {
		if p.Name != "" {
			promo.DealTags = append(promo.DealTags, p.Name)
		} else if p.Text != "" {
			promo.DealTags = append(promo.DealTags, p.Text)
		}
	}
	if savingBadge != nil && savingBadge.Value != "" {
		promo.DealTags = append(promo.DealTags, savingBadge.Value)
	}

	switch {
	case firstItem.SavingsPercentage > 0:
		promo.SavingsText = formatNumber(firstItem.SavingsPercentage) + "% OFF"
	case savingBadge != nil:
		promo.SavingsText = savingBadge.Value
	}

	return promo
}

// buildRecommendations flattens whichever shape the feed returned, keeps
// only entries carrying a listing identifier, and caps the list at 10 in
// source order.
func buildRecommendations(raw json.RawMessage) []models.Recommendation {
	items := flattenRecItems(raw)

	recs := make([]models.Recommendation, 0, 10)
	for _, item := range items {
		if item.PLID == "" {
			continue
		}
		rec := models.Recommendation{
			Title:       item.Title,
			Price:       "R " + item.Price.String(),
			Image:       NormalizeImageURL(item.ImageURL),
			URL:         fmt.Sprintf("https://www.takealot.com/%s/%s", item.Slug, item.PLID),
			ReviewCount: item.ReviewCount.String(),
			Rating:      item.Rating.String(),
		}
		if rec.ReviewCount == "" {
			rec.ReviewCount = "0"
		}
		if rec.Rating == "" {
			rec.Rating = "0"
		}
		recs = append(recs, rec)
		if len(recs) == 10 {
			break
		}
	}
	return recs
}

// flattenRecItems accepts either the sectioned shape
// {sections: [{items: [...]}]} or a flat array of items.
func flattenRecItems(raw json.RawMessage) []takealotRecItem {
	if len(raw) == 0 {
		return nil
	}

	var sectioned struct {
		Sections []struct {
			Items []takealotRecItem `json:"items"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(raw, &sectioned); err == nil && len(sectioned.Sections) > 0 {
		var items []takealotRecItem
		for _, s := range sectioned.Sections {
			items = append(items, s.Items...)
		}
		return items
	}

	var flat []takealotRecItem
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat
	}
	return nil
}

// NormalizeImageURL substitutes the size-template placeholder with the
// full-resolution variant.
func NormalizeImageURL(url string) string {
	return strings.ReplaceAll(url, "{size}", "full")
}

// formatNumber renders a float the way the site shows it: no trailing
// zeros, no exponent.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
