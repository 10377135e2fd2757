package customer

import (
	"regexp"
	"strings"
)

var (
	accountNumberPattern   = regexp.MustCompile(`(?i)account\s*number[:\s]*([A-Z0-9-]+)`)
	fallbackAccountPattern = regexp.MustCompile(`\b([0-9]{6,})\b`)
)

// ExtractAccountNumber finds the account number an inbound message refers to.
// An explicit "Account Number: X" wins over a bare run of six or more digits.
func ExtractAccountNumber(body string) (string, bool) {
	if strings.TrimSpace(body) == "" {
		return "", false
	}
	if m := accountNumberPattern.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := fallbackAccountPattern.FindStringSubmatch(body); m != nil {
		return m[1], true
	}
	return "", false
}
