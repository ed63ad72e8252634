// Package locale picks the interface language (KO or EN) for a request.
package locale

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/admitai/admitai-korea/internal/db/models"
)

// supported lists the languages in preference order; the first is the
// default when nothing in the header matches.
var supported = []language.Tag{language.Korean, language.English}

var matcher = language.NewMatcher(supported)

// Negotiate maps an Accept-Language header onto KO or EN. An empty or
// unparseable header yields KO.
func Negotiate(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return models.LanguageKO
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return models.LanguageKO
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return models.LanguageKO
	}
	if supported[idx] == language.English {
		return models.LanguageEN
	}
	return models.LanguageKO
}

// Resolve returns explicit when it names a supported language (any case) and
// otherwise falls back to the Accept-Language header.
func Resolve(explicit, acceptLanguage string) string {
	if up := strings.ToUpper(strings.TrimSpace(explicit)); models.IsValidLanguage(up) {
		return up
	}
	return Negotiate(acceptLanguage)
}
