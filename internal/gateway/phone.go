package gateway

import (
	"regexp"
	"strings"
)

var digitsOnlyRe = regexp.MustCompile(`[^0-9]`)

// CanonicalDigits strips every non-digit character from a phone number
// representation.
func CanonicalDigits(s string) string {
	return digitsOnlyRe.ReplaceAllString(s, "")
}

// ToLocal converts a digit string to the domestic dialing format: a
// leading country code 81 becomes the leading 0. Numbers already local
// or with an unrecognized prefix pass through unchanged.
func ToLocal(num string) string {
	if strings.HasPrefix(num, "81") {
		return "0" + num[2:]
	}
	return num
}

// ToInternational converts a digit string to the country-code-prefixed
// format: the leading 0 becomes 81. Numbers already international or
// with an unrecognized prefix pass through unchanged.
func ToInternational(num string) string {
	if strings.HasPrefix(num, "0") {
		return "81" + num[1:]
	}
	return num
}

var (
	mobile11Re = regexp.MustCompile(`^(020|060|070|080|090)[1-9]`)
	mobile14Re = regexp.MustCompile(`^(0200|0600|0700|0800|0900)`)
	intlRe     = regexp.MustCompile(`^(8180|8190)`)
)

// ValidMobile checks a digits-only number against the gateway's accepted
// shapes: 11-digit mobile prefixes with a non-zero fourth digit, 14-digit
// forwarding prefixes, 8180/8190 international forms up to 12 digits, and
// a permissive 6-20 digit fallback that avoids rejecting numbers the
// gateway itself would accept.
func ValidMobile(num string) bool {
	if num == "" || digitsOnlyRe.MatchString(num) {
		return false
	}
	l := len(num)
	if l == 11 && mobile11Re.MatchString(num) {
		return true
	}
	if l == 14 && mobile14Re.MatchString(num) {
		return true
	}
	if intlRe.MatchString(num) && l <= 12 {
		return true
	}
	return l >= 6 && l <= 20
}
