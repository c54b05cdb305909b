// Package browser resolves the browser name/version advertised in the hello
// handshake. This is a plain lookup over user-agent product tokens.
package browser

import "strings"

type Info struct {
	Name    string
	Version string
}

// Products are checked in order; derivative browsers ship the Chrome token
// too, so they must match first.
var products = []struct {
	token string
	name  string
}{
	{"Edg/", "edge"},
	{"OPR/", "opera"},
	{"Vivaldi/", "vivaldi"},
	{"Brave/", "brave"},
	{"Chrome/", "chrome"},
	{"Firefox/", "firefox"},
	{"Version/", "safari"},
}

// Detect parses a user-agent string into a browser Info. Unrecognized agents
// resolve to name "unknown" with an empty version.
func Detect(userAgent string) Info {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return Info{Name: "unknown"}
	}
	for _, p := range products {
		idx := strings.Index(ua, p.token)
		if idx < 0 {
			continue
		}
		if p.name == "safari" && !strings.Contains(ua, "Safari/") {
			continue
		}
		rest := ua[idx+len(p.token):]
		end := strings.IndexAny(rest, " ;)")
		if end < 0 {
			end = len(rest)
		}
		return Info{Name: p.name, Version: rest[:end]}
	}
	return Info{Name: "unknown"}
}
