package automation

import (
	"regexp"
	"strings"
)

var phoneSeparators = regexp.MustCompile(`(` + spaceClass + `|-)+`)

// NormalizeDutchPhone turns a Dutch phone number into E.164 (+316...).
// It only rewrites prefixes; digits and length are not validated.
func NormalizeDutchPhone(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	phone := phoneSeparators.ReplaceAllString(raw, "")

	if strings.HasPrefix(phone, "00") {
		phone = "+" + phone[2:]
	}
	if strings.HasPrefix(phone, "0") {
		phone = "+31" + phone[1:]
	}
	if strings.HasPrefix(phone, "31") {
		phone = "+31" + phone[2:]
	}

	if !strings.HasPrefix(phone, "+") {
		return "", false
	}
	return phone, true
}
