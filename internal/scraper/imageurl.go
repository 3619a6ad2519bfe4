package scraper

import (
	"regexp"
	"strings"
)

var (
	sizeSuffixRe    = regexp.MustCompile(`(?i)_\d+x\d+[^.]*\.(jpg|jpeg|png|webp)(_\.avif)?$`)
	mainSuffixRe    = regexp.MustCompile(`(?i)_main\.(jpg|jpeg|png|webp)$`)
	profileSuffixRe = regexp.MustCompile(`(?i)_profile\.(jpg|jpeg|png|webp)$`)
)

// ImageNormalizer canonicalizes raw image references. Two references are
// the same image iff their normalized form is identical, and normalization
// is idempotent.
type ImageNormalizer struct {
	skipPatterns []string
}

func NewImageNormalizer(skipPatterns []string) *ImageNormalizer {
	lowered := make([]string, 0, len(skipPatterns))
	for _, p := range skipPatterns {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &ImageNormalizer{skipPatterns: lowered}
}

// Normalize strips query parameters and known size/quality suffixes and
// fixes protocol-relative URLs. Returns "" for empty input and for
// references matching the UI-chrome denylist.
func (n *ImageNormalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	url := raw
	if idx := strings.Index(url, "?"); idx >= 0 {
		url = url[:idx]
	}

	url = sizeSuffixRe.ReplaceAllString(url, ".$1")
	url = mainSuffixRe.ReplaceAllString(url, ".$1")
	url = profileSuffixRe.ReplaceAllString(url, ".$1")

	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}

	if n.skipped(url) {
		return ""
	}

	return url
}

func (n *ImageNormalizer) skipped(url string) bool {
	lower := strings.ToLower(url)
	for _, pattern := range n.skipPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
