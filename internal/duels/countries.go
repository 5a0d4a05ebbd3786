package duels

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var regionNames = display.English.Regions()

// CountryName resolves a 2-letter ISO country code to a display name.
// Unresolvable codes fall back to the upper-cased code so rows never vanish
// from country breakdowns.
func CountryName(code string) string {
	if code == "" {
		return "Unknown"
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	if name := regionNames.Name(region); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
