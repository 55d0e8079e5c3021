package browser

import "math/rand"

// Fingerprint is the per-session browser identity: one user agent and one
// viewport drawn from small pools of real-world values, plus the static
// header set every session carries. Nothing is persisted between picks.
type Fingerprint struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Headers        map[string]string
}

var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
}

var viewportPool = [][2]int{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
}

// PickFingerprint selects a user agent and viewport uniformly at random.
func PickFingerprint() Fingerprint {
	ua := userAgentPool[rand.Intn(len(userAgentPool))]
	vp := viewportPool[rand.Intn(len(viewportPool))]

	return Fingerprint{
		UserAgent:      ua,
		ViewportWidth:  vp[0],
		ViewportHeight: vp[1],
		Headers: map[string]string{
			"Accept-Language":           "en-US,en;q=0.9",
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding":           "gzip, deflate, br",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
		},
	}
}
