package service

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"
)

// MaxCodeLength bounds aliases so every code fits the stores' code column.
const MaxCodeLength = 64

var (
	ErrInvalidURL   = errors.New("link must be an absolute http or https URL")
	ErrInvalidAlias = errors.New("alias is not allowed")
)

// Aliases that would shadow a route of the HTTP server.
var reservedCodes = map[string]bool{
	"health":  true,
	"shorten": true,
	"stats":   true,
	"qr":      true,
}

// ValidateTargetURL checks the shape of a link only; the target itself is
// never fetched.
func ValidateTargetURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// ValidateAlias rejects aliases that could not be served as a single path
// segment or stored as a code. An empty alias is valid and means "generate one".
func ValidateAlias(alias string) error {
	alias = strings.TrimSpace(alias)
	if utf8.RuneCountInString(alias) > MaxCodeLength {
		return ErrInvalidAlias
	}
	if reservedCodes[alias] || strings.ContainsAny(alias, "/?#") {
		return ErrInvalidAlias
	}
	return nil
}

// ShortURL joins the public base URL and a code.
func ShortURL(baseURL, code string) string {
	return baseURL + "/" + url.PathEscape(code)
}
