package fetcher

import (
	"strings"
)

// blockIndicators are matched case-insensitively against page HTML.
var blockIndicators = []string{
	"access denied",
	"access forbidden",
	"you don't have permission",
	"you do not have permission",
	"403 forbidden",
	"forbidden",
	"blocked",
	"errors.edgesuite.net",
	"reference #",
	"cloudflare",
	"checking your browser",
	"ddos protection",
	"captcha",
	"bot detection",
	"automated access",
	"please verify you are human",
}

// BlockIndicators returns a copy of the blocking vocabulary.
func BlockIndicators() []string {
	out := make([]string, len(blockIndicators))
	copy(out, blockIndicators)
	return out
}

// DetectBlocked returns the first blocking indicator found in html, or "".
func DetectBlocked(html string) string {
	lower := strings.ToLower(html)
	for _, ind := range blockIndicators {
		if strings.Contains(lower, ind) {
			return ind
		}
	}
	return ""
}

// IsBlocked reports whether html looks like a challenge or denial page.
func IsBlocked(html string) bool {
	return DetectBlocked(html) != ""
}

// CAPTCHAType identifies the type of CAPTCHA on a challenge page.
type CAPTCHAType string

const (
	CAPTCHAReCaptchaV2 CAPTCHAType = "recaptcha_v2"
	CAPTCHAReCaptchaV3 CAPTCHAType = "recaptcha_v3"
	CAPTCHAHCaptcha    CAPTCHAType = "hcaptcha"
	CAPTCHATurnstile   CAPTCHAType = "turnstile"
)

// DetectCAPTCHA classifies a CAPTCHA widget and returns its site key.
// Used only to enrich block logs; nothing here solves challenges.
func DetectCAPTCHA(html string) (CAPTCHAType, string) {
	lower := strings.ToLower(html)
	siteKey := extractBetween(html, `data-sitekey="`, `"`)
	if siteKey == "" {
		return "", ""
	}

	switch {
	case strings.Contains(lower, "recaptcha"):
		if strings.Contains(lower, "recaptcha/api.js?render=") {
			return CAPTCHAReCaptchaV3, siteKey
		}
		return CAPTCHAReCaptchaV2, siteKey
	case strings.Contains(lower, "hcaptcha") || strings.Contains(lower, "h-captcha"):
		return CAPTCHAHCaptcha, siteKey
	case strings.Contains(lower, "turnstile"):
		return CAPTCHATurnstile, siteKey
	}
	return "", ""
}

func extractBetween(s, start, end string) string {
	idx := strings.Index(s, start)
	if idx < 0 {
		return ""
	}
	s = s[idx+len(start):]
	idx = strings.Index(s, end)
	if idx < 0 {
		return ""
	}
	return s[:idx]
}
