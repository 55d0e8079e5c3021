package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestParseProductFullPage(t *testing.T) {
	html := `<html><body>
		<span id="productTitle"> Stainless Steel Water Bottle 1L </span>
		<span class="a-price"><span class="a-offscreen">R 349.99</span></span>
		<img id="landingImage" data-old-hires="https://img.example.com/bottle-hires.jpg" src="https://img.example.com/bottle.jpg">
		<span id="acrCustomerReviewText">1,234 ratings</span>
		<span class="a-icon-alt">4.6 out of 5 stars</span>
		<div id="merchant-info">Sold by HydroGear, and ships from warehouse</div>
		<div>#2,456 in Kitchen &amp; Dining (See Top 100)</div>
		<div id="olp_feature_div">New (5) from R 299.00</div>
		<div>Product Dimensions: 7.5 x 7.5 x 26.2 cm; Item Weight: 0.4 kg</div>
		<div>Date First Available: 12 January 2023</div>
	</body></html>`

	p := NewAmazonParser()
	snap, err := p.ParseProduct(html)
	require.NoError(t, err)

	assert.Equal(t, "Stainless Steel Water Bottle 1L", snap.Title)
	assert.Equal(t, 349.99, snap.Price)
	assert.Equal(t, "https://img.example.com/bottle-hires.jpg", snap.Image)
	assert.Equal(t, "1234", snap.ReviewCount)
	assert.Equal(t, "4.6", snap.Rating)
	assert.Equal(t, "HydroGear", snap.SoldBy)
	assert.False(t, snap.Is1P)
	assert.Equal(t, 2456, snap.BSR)
	assert.Equal(t, 5, snap.SellerCount)
	assert.Equal(t, "FBM", snap.Fulfillment)
	assert.Equal(t, "7.5 x 7.5 x 26.2 cm", snap.Dimensions)
	assert.Equal(t, "0.4 kg", snap.Weight)
	assert.Equal(t, "12 January 2023", snap.DateFirstAvailable)
	assert.Equal(t, "Amazon", snap.Source)
}

func TestParseProductSentinelDefaults(t *testing.T) {
	p := NewAmazonParser()
	snap, err := p.ParseProduct(`<html><body><span id="productTitle">Bare listing</span></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, "Bare listing", snap.Title)
	assert.Equal(t, 0.0, snap.Price)
	assert.Equal(t, "", snap.Image)
	assert.Equal(t, "0", snap.ReviewCount)
	assert.Equal(t, "0", snap.Rating)
	assert.Equal(t, "Amazon", snap.SoldBy)
	assert.True(t, snap.Is1P)
	assert.Equal(t, 0, snap.BSR)
	assert.Equal(t, "Unknown", snap.Category)
	assert.Equal(t, 1, snap.SellerCount)
	assert.Equal(t, "AMZ", snap.Fulfillment)
	assert.Equal(t, "--", snap.Dimensions)
	assert.Equal(t, "--", snap.Weight)
	assert.Equal(t, "--", snap.DateFirstAvailable)
}

func TestExtractImageDynamicImageMap(t *testing.T) {
	// The inline JSON map goes smallest to largest; the last key is the
	// highest resolution.
	html := `<html><body>
		<img class="a-dynamic-image" data-a-dynamic-image='{"https://img.example.com/small.jpg":[200,200],"https://img.example.com/large.jpg":[1500,1500]}' src="https://img.example.com/small.jpg">
	</body></html>`

	p := NewAmazonParser()
	assert.Equal(t, "https://img.example.com/large.jpg", p.ExtractImage(doc(t, html)))
}

func TestExtractImageSkipsTrackingPixels(t *testing.T) {
	html := `<html><body>
		<img id="landingImage" src="https://tracking.example.com/pixel.gif">
		<img id="main-image" src="https://img.example.com/real.jpg">
	</body></html>`

	p := NewAmazonParser()
	assert.Equal(t, "https://img.example.com/real.jpg", p.ExtractImage(doc(t, html)))
}

func TestExtractImageWideFallback(t *testing.T) {
	// No primary selector matches; the first img wider than 200px that is
	// not a tracking pixel wins.
	html := `<html><body>
		<img src="https://tracking.example.com/pixel.gif" width="300">
		<img src="https://img.example.com/thumb.jpg" width="100">
		<img src="https://img.example.com/gallery.jpg" width="640">
	</body></html>`

	p := NewAmazonParser()
	assert.Equal(t, "https://img.example.com/gallery.jpg", p.ExtractImage(doc(t, html)))
}

func TestExtractImageMalformedDynamicMapFallsBackToSrc(t *testing.T) {
	html := `<html><body>
		<img id="landingImage" data-a-dynamic-image="{broken json" src="https://img.example.com/plain.jpg">
	</body></html>`

	p := NewAmazonParser()
	assert.Equal(t, "https://img.example.com/plain.jpg", p.ExtractImage(doc(t, html)))
}

func TestExtractSoldBy(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "third party merchant",
			html:     `<div id="merchant-info">Sold by GadgetWorld, fulfilled by courier</div>`,
			expected: "GadgetWorld",
		},
		{
			name:     "amazon retail",
			html:     `<div id="merchant-info">Ships from and sold by Amazon.com</div>`,
			expected: "Amazon",
		},
		{
			name:     "no merchant info",
			html:     `<div></div>`,
			expected: "Amazon",
		},
	}

	p := NewAmazonParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.ExtractSoldBy(doc(t, `<html><body>`+tt.html+`</body></html>`)))
		})
	}
}

func TestExtractBSR(t *testing.T) {
	p := NewAmazonParser()

	bsr, category := p.ExtractBSR("Best Sellers Rank: #12,345 in Home & Kitchen (See Top 100)")
	assert.Equal(t, 12345, bsr)
	assert.NotEmpty(t, category)

	bsr, category = p.ExtractBSR("no rank information here")
	assert.Equal(t, 0, bsr)
	assert.Equal(t, "Unknown", category)
}

func TestExtractFulfillment(t *testing.T) {
	p := NewAmazonParser()

	fbaDoc := doc(t, `<html><body><div id="fbaUpsellFeature"></div></body></html>`)
	assert.Equal(t, "FBA", p.ExtractFulfillment(fbaDoc, "GadgetWorld"))

	plain := doc(t, `<html><body></body></html>`)
	assert.Equal(t, "AMZ", p.ExtractFulfillment(plain, "Amazon"))
	assert.Equal(t, "FBM", p.ExtractFulfillment(plain, "GadgetWorld"))
}

func TestLastJSONKey(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"ordered keys", `{"a":[1,2],"b":[3,4],"c":[5,6]}`, "c"},
		{"nested objects ignored", `{"a":{"x":1},"b":{"y":2}}`, "b"},
		{"string values", `{"a":"x","b":"y"}`, "b"},
		{"single key", `{"only":[800,800]}`, "only"},
		{"not an object", `[1,2,3]`, ""},
		{"malformed", `{"a":`, "a"},
		{"empty object", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, lastJSONKey(tt.raw))
		})
	}
}
