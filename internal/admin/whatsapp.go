package admin

import (
	"errors"
	"net/url"
	"strings"
)

const defaultCountryPrefix = "51"

// WhatsAppLink builds a wa.me URL for the phone number with a prefilled
// message. Numbers without a country code get the Peru prefix.
func WhatsAppLink(phone, message string) (string, error) {
	digits := normalizePhone(phone)
	if digits == "" {
		return "", errors.New("phone number is required")
	}
	if !strings.HasPrefix(digits, defaultCountryPrefix) {
		digits = defaultCountryPrefix + digits
	}
	link := "https://wa.me/" + digits
	if message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link, nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
