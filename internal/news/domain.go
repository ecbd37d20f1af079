package news

import (
	"net/url"
	"strings"
)

// Domain derives the host used by the storage uniqueness constraint:
// lowercased, without port or a leading "www.". Unparseable input yields "unknown".
func Domain(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
