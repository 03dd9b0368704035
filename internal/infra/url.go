package infra

import (
	"fmt"
	"net/url"
	"strings"
)

// sanitizeURL trims whitespace and stray quotes, as left behind by .env
// files, and checks the scheme against the accepted ones.
func sanitizeURL(raw, kind string, schemes ...string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if clean == "" {
		return "", fmt.Errorf("%s url is required", kind)
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parse %s url: %w", kind, err)
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return clean, nil
		}
	}
	return "", fmt.Errorf("%s url scheme must be one of %s, got %q", kind, strings.Join(schemes, ", "), u.Scheme)
}
