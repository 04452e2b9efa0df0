package utils

import "strings"

// Truncate is a simple string truncate
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// MaskSecret hides all but the first and last four characters of a secret,
// e.g. "sk-or-v1-abcdef123456" becomes "sk-o****3456". Secrets too short to
// keep both ends are fully masked.
func MaskSecret(secret string) string {
	const keep = 4
	if secret == "" {
		return ""
	}
	if len(secret) <= keep*2 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:keep] + "****" + secret[len(secret)-keep:]
}
