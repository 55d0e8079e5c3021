package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lmokoena/marketscout/internal/models"
)

// AmazonParser extracts listing fields from a rendered Amazon product
// page. Every field degrades independently to a sentinel default; the
// caller decides whether the page as a whole was usable.
type AmazonParser struct {
	ratingPattern      *regexp.Regexp
	soldByPattern      *regexp.Regexp
	bsrPattern         *regexp.Regexp
	sellerCountPattern *regexp.Regexp
	dimensionPattern   *regexp.Regexp
	weightPattern      *regexp.Regexp
	datePattern        *regexp.Regexp
	digitsPattern      *regexp.Regexp
	pricePattern       *regexp.Regexp
}

func NewAmazonParser() *AmazonParser {
	return &AmazonParser{
		ratingPattern:      regexp.MustCompile(`([0-9.]+)[ ]*out of`),
		soldByPattern:      regexp.MustCompile(`(?i)Sold by\s+([^,]+)`),
		bsrPattern:         regexp.MustCompile(`(?i)#([0-9,]+)\s+in\s+([^s(]+)`),
		sellerCountPattern: regexp.MustCompile(`([0-9]+)`),
		dimensionPattern:   regexp.MustCompile(`(?i)([0-9.]+ x [0-9.]+ x [0-9.]+)\s*(inches|cm|mm)?`),
		weightPattern:      regexp.MustCompile(`(?i)([0-9.]+)\s*(pounds|ounces|kg|grams|g)`),
		datePattern:        regexp.MustCompile(`(?i)Date First Available[ \t:]+([^;\n]+)`),
		digitsPattern:      regexp.MustCompile(`[^0-9]`),
		pricePattern:       regexp.MustCompile(`[^0-9.]`),
	}
}

// imageSelectors are tried in order; the first usable source wins.
var imageSelectors = []string{
	"#landingImage",
	"#imgBlkFront",
	"#main-image",
	"#ebooks-img-canvas img",
	"#img-canvas img",
	".a-dynamic-image",
	"#magnifierCanvas img",
	`[data-action="main-image-click"] img`,
}

// ParseProduct reads every tracked field out of the page HTML. The
// returned snapshot carries raw fields only; derived metrics are the
// heuristics package's job.
func (p *AmazonParser) ParseProduct(html string) (*models.ProductSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	snap := models.NewProductSnapshot("Amazon")

	snap.Title = strings.TrimSpace(doc.Find("#productTitle, h1.product-title-word-break").First().Text())
	snap.Price = p.ExtractPrice(doc)
	snap.PriceText = doc.Find(".a-price .a-offscreen, #priceblock_ourprice, #priceblock_dealprice").First().Text()
	snap.Image = p.ExtractImage(doc)
	snap.ReviewCount = p.ExtractReviewCount(doc)
	snap.Rating = p.ExtractRating(doc)
	snap.SoldBy = p.ExtractSoldBy(doc)
	snap.Is1P = strings.Contains(strings.ToLower(snap.SoldBy), "amazon")

	bodyText := doc.Find("body").Text()
	snap.BSR, snap.Category = p.ExtractBSR(bodyText)
	snap.SellerCount = p.ExtractSellerCount(doc)
	snap.Fulfillment = p.ExtractFulfillment(doc, snap.SoldBy)
	snap.Dimensions = p.extractByPattern(bodyText, p.dimensionPattern, 0)
	snap.Weight = p.extractByPattern(bodyText, p.weightPattern, 0)
	snap.DateFirstAvailable = p.extractByPattern(bodyText, p.datePattern, 1)

	return snap, nil
}

func (p *AmazonParser) ExtractPrice(doc *goquery.Document) float64 {
	text := doc.Find(".a-price .a-offscreen, #priceblock_ourprice, #priceblock_dealprice").First().Text()
	price, err := strconv.ParseFloat(p.pricePattern.ReplaceAllString(text, ""), 64)
	if err != nil {
		return 0
	}
	return price
}

// ExtractImage walks the selector candidates, preferring the hi-res
// attributes Amazon stashes on the main image element. A responsive
// image carries an inline JSON map of URL to metadata; its last key is
// the highest resolution. Tracking pixels are skipped. When no
// candidate matches, the first sufficiently wide non-pixel <img> on the
// page wins.
func (p *AmazonParser) ExtractImage(doc *goquery.Document) string {
	for _, selector := range imageSelectors {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}

		src := firstAttr(el, "data-old-hires", "data-a-dynamic-image", "src")
		image := src
		if strings.HasPrefix(src, "{") {
			if last := lastJSONKey(src); last != "" {
				image = last
			} else {
				image, _ = el.Attr("src")
			}
		}

		if image != "" && !strings.Contains(image, "pixel") && !strings.Contains(image, "transparent") {
			return image
		}
	}

	return p.fallbackImage(doc)
}

// fallbackImage scans every <img> for the first one declared wider than
// 200px whose URL does not look like a tracking pixel.
func (p *AmazonParser) fallbackImage(doc *goquery.Document) string {
	var image string
	doc.Find("img").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		width, _ := strconv.Atoi(el.AttrOr("width", "0"))
		src := el.AttrOr("src", "")
		if width > 200 && src != "" && !strings.Contains(src, "pixel") {
			image = src
			return false
		}
		return true
	})
	return image
}

func (p *AmazonParser) ExtractReviewCount(doc *goquery.Document) string {
	text := doc.Find("#acrCustomerReviewText, #acrCustomerReviewLink").First().Text()
	count := p.digitsPattern.ReplaceAllString(text, "")
	if count == "" {
		return "0"
	}
	return count
}

func (p *AmazonParser) ExtractRating(doc *goquery.Document) string {
	text := doc.Find(".a-icon-alt, #acrCustomerReviewText").First().Text()
	if m := p.ratingPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return "0"
}

// ExtractSoldBy reads the merchant line. Amazon's own listings say so in
// several phrasings, so anything mentioning amazon keeps the default.
func (p *AmazonParser) ExtractSoldBy(doc *goquery.Document) string {
	merchantInfo := doc.Find("#merchant-info, #sellerProfileTriggerId").First().Text()
	if strings.Contains(strings.ToLower(merchantInfo), "amazon") {
		return "Amazon"
	}
	if m := p.soldByPattern.FindStringSubmatch(merchantInfo); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "Amazon"
}

// ExtractBSR pulls rank and category out of the "#<rank> in <category>"
// line in the product details.
func (p *AmazonParser) ExtractBSR(bodyText string) (int, string) {
	m := p.bsrPattern.FindStringSubmatch(bodyText)
	if m == nil {
		return 0, "Unknown"
	}
	rank, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, "Unknown"
	}
	return rank, strings.TrimSpace(m[2])
}

func (p *AmazonParser) ExtractSellerCount(doc *goquery.Document) int {
	text := doc.Find("#olp_feature_div, .olp-text-link").First().Text()
	if m := p.sellerCountPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 1
}

func (p *AmazonParser) ExtractFulfillment(doc *goquery.Document, soldBy string) string {
	if doc.Find("#SSO_FBALabel, #fbaUpsellFeature").Length() > 0 {
		return "FBA"
	}
	if strings.Contains(strings.ToLower(soldBy), "amazon") {
		return "AMZ"
	}
	return "FBM"
}

// extractByPattern returns the indicated capture group (0 = whole match)
// or the '--' sentinel.
func (p *AmazonParser) extractByPattern(text string, pattern *regexp.Regexp, group int) string {
	if m := pattern.FindStringSubmatch(text); m != nil && len(m) > group {
		return strings.TrimSpace(m[group])
	}
	return "--"
}

func firstAttr(el *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := el.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}

// lastJSONKey returns the final top-level key of a JSON object literal,
// preserving document order, which encoding/json's map decoding would
// lose.
func lastJSONKey(raw string) string {
	dec := json.NewDecoder(strings.NewReader(raw))

	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return ""
	}

	var last string
	depth := 0
	expectKey := true
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				depth++
			case '}', ']':
				if depth == 0 {
					return last
				}
				depth--
			}
			if depth == 0 {
				expectKey = true
			}
		case string:
			if depth == 0 {
				if expectKey {
					last = t
					expectKey = false
				} else {
					expectKey = true
				}
			}
		default:
			if depth == 0 {
				expectKey = true
			}
		}
	}
	return last
}
