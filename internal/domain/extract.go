// Package domain maps page URLs to the trackable domain unit. Extraction is
// pure and deliberately conservative: anything that is not a plain http(s)
// hostname is untrackable rather than an error.
package domain

import (
	"net/url"
	"regexp"
	"strings"
)

var ipv4Literal = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// Extract returns the lowercase www-stripped hostname of raw, or ok=false
// when the URL is not trackable. Raw IPs are never trackable.
func Extract(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	host = strings.TrimPrefix(host, "www.")
	if strings.Contains(host, ":") {
		return "", false
	}
	if ipv4Literal.MatchString(host) {
		return "", false
	}
	dot := strings.LastIndexByte(host, '.')
	if dot < 0 {
		return "", false
	}
	if len(host)-dot-1 < 2 {
		return "", false
	}
	return host, true
}
