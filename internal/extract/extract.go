// Package extract turns a single free-text utterance into a partial travel
// demand record by literal pattern matching.
//
// Extraction is deliberately shallow: it is a best-effort structured-data
// scrape, not natural-language understanding. A pattern that does not match
// simply leaves its field absent — the missing-field prompt loop recovers
// from false negatives, so the patterns never need to be clever.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/planmate/backend/internal/domain"
)

// delimiters is the sentence-delimiting punctuation set. A captured run of
// text for destination, preferences, and special requirements ends at the
// first of these.
const delimiters = `，,。！？\n`

var (
	// destinationRe captures the text after a "going to" trigger phrase, up
	// to the next sentence delimiter. Longer triggers come first so that
	// "想去北京" captures "北京", not "去北京" matching at "想".
	destinationRe = regexp.MustCompile(`(?:想去|要去|目的地是|目的地|去)([^` + delimiters + `]+)`)

	// dateRangeRe matches two date-like tokens joined by a to/until
	// connector. A token is year/month/day with 年月日 markers or the
	// separators "-", "/", ".". No calendar validation happens here.
	dateRangeRe = regexp.MustCompile(`(\d{4}[年./-]\d{1,2}[月./-]\d{1,2}[日号]?)\s*(?:到|至)\s*(\d{4}[年./-]\d{1,2}[月./-]\d{1,2}[日号]?)`)

	// budgetRe matches an integer immediately followed by a currency unit.
	budgetRe = regexp.MustCompile(`(\d+)\s*(?:元|块钱|块)`)

	// travelersRe matches an integer immediately followed by a person unit.
	travelersRe = regexp.MustCompile(`(\d+)\s*(?:个人|人|位)`)

	preferencesRe = regexp.MustCompile(`(?:喜欢|偏好|爱好是|爱好)([^` + delimiters + `]+)`)

	specialRe = regexp.MustCompile(`(?:特殊需求是|特殊需求|需要|要求)([^` + delimiters + `]+)`)

	dateSeparatorRe = regexp.MustCompile(`[年月./]`)
	dateDayMarkerRe = regexp.MustCompile(`[日号]`)

	// locationRe matches a place name wrapped in 【】 brackets, the marker
	// the plan generator is instructed to emit around concrete places.
	locationRe = regexp.MustCompile(`【([^】]+)】`)
)

// Extract scans the utterance and returns whichever demand fields its
// patterns recognize. It is pure and deterministic, never fails, and returns
// the zero value for any field without a match. Each field is extracted
// independently, first match wins.
func Extract(utterance string) domain.PartialDemand {
	// Narrow full-width digits (２人 → 2人) so the numeric patterns match
	// text typed with a CJK input method.
	text := width.Narrow.String(utterance)

	var p domain.PartialDemand

	if m := destinationRe.FindStringSubmatch(text); m != nil {
		p.Destination = strings.TrimSpace(m[1])
	}
	if m := dateRangeRe.FindStringSubmatch(text); m != nil {
		p.StartDate = normalizeDate(m[1])
		p.EndDate = normalizeDate(m[2])
	}
	if m := budgetRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			p.Budget = n
		}
	}
	if m := travelersRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			p.Travelers = n
		}
	}
	if m := preferencesRe.FindStringSubmatch(text); m != nil {
		p.Preferences = strings.TrimSpace(m[1])
	}
	if m := specialRe.FindStringSubmatch(text); m != nil {
		p.SpecialRequirements = strings.TrimSpace(m[1])
	}

	return p
}

// Locations returns the place names marked with 【】 in a generated plan, in
// order of first appearance, duplicates removed. Plans written without the
// markers yield an empty slice.
func Locations(plan string) []string {
	matches := locationRe.FindAllStringSubmatch(plan, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// normalizeDate rewrites a matched date token into the "-"-separated form:
// year and month markers (年, 月, ".", "/") become "-", the day marker
// (日, 号) is stripped. The rewrite is purely textual — "2024年13月1日"
// becomes "2024-13-1" without complaint.
func normalizeDate(token string) string {
	s := dateSeparatorRe.ReplaceAllString(token, "-")
	s = dateDayMarkerRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
