// Package metadata tracks which domains still owe the peer a favicon
// metadata_update. A domain is due when it was never sent or its record has
// aged past the staleness window.
package metadata

import "time"

type Cache struct {
	ttl  time.Duration
	sent map[string]time.Time
}

// NewCache seeds the cache with persisted send times. seed may be nil.
func NewCache(ttl time.Duration, seed map[string]time.Time) *Cache {
	sent := make(map[string]time.Time, len(seed))
	for domain, at := range seed {
		sent[domain] = at
	}
	return &Cache{ttl: ttl, sent: sent}
}

func (c *Cache) NeedsUpdate(domain string, now time.Time) bool {
	if domain == "" {
		return false
	}
	at, ok := c.sent[domain]
	if !ok {
		return true
	}
	return now.Sub(at) > c.ttl
}

// MarkSent records a confirmed send. Callers must not mark on failed sends;
// the domain stays due for the next opportunity.
func (c *Cache) MarkSent(domain string, at time.Time) {
	c.sent[domain] = at
}

func (c *Cache) LastSentAt(domain string) (time.Time, bool) {
	at, ok := c.sent[domain]
	return at, ok
}

// CandidateIconURLs builds the preference-ordered favicon candidate list:
// well-known high-resolution paths, then the icon the platform reported for
// the tab, then the root favicon fallback.
func CandidateIconURLs(domain, detectedIconURL string) []string {
	if domain == "" {
		return nil
	}
	candidates := []string{
		"https://" + domain + "/apple-touch-icon.png",
		"https://" + domain + "/apple-touch-icon-precomposed.png",
	}
	if detectedIconURL != "" {
		candidates = append(candidates, detectedIconURL)
	}
	return append(candidates, "https://"+domain+"/favicon.ico")
}
