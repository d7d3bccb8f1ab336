// Package parse provides cell-level normalization for spreadsheet imports.
//
// These functions handle the messy reality of crowd-sourced form exports:
//   - Phone numbers carrying the leading apostrophe Excel uses to force text
//   - Dates in several Argentine and ISO formats, including spelled-out
//     Spanish month names
//   - Free-text answers for "years of experience" and "how many printers"
//
// Malformed input never returns an error past the cell boundary: each parser
// degrades to a documented default and logs a warning, so one bad answer
// cannot sink an import row.
package parse

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// falsy markers produced by spreadsheet exports for "empty" cells.
var falsyCells = map[string]bool{
	"":      true,
	"0":     true,
	"nan":   true,
	"false": true,
	"no":    true,
}

// Blank reports whether a raw cell should be treated as having no value.
// Covers empty strings and the NaN artifact pandas-style exports leave behind.
func Blank(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "" || s == "nan"
}

// Truthy reports whether a cell counts as a positive indicator.
// A cell is positive when present and not one of the falsy markers
// (0, nan, false, no — case-insensitive).
func Truthy(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return !falsyCells[s]
}

// Phone strips the leading apostrophe artifact and surrounding whitespace.
// Returns the empty string for blank cells.
func Phone(s string) string {
	if Blank(s) {
		return ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimLeft(s, "'")
}

// spanishMonths translates spelled-out Spanish month names so the long-form
// layouts below can parse them with Go's English month names.
var spanishMonths = map[string]string{
	"enero":      "January",
	"febrero":    "February",
	"marzo":      "March",
	"abril":      "April",
	"mayo":       "May",
	"junio":      "June",
	"julio":      "July",
	"agosto":     "August",
	"septiembre": "September",
	"octubre":    "October",
	"noviembre":  "November",
	"diciembre":  "December",
}

// Date layouts tried in order. Day-first formats come before ISO because the
// source forms are Argentine.
var (
	dateLayouts = []string{
		"2/1/2006",  // 18/02/1985
		"2-1-2006",  // 22-07-1962
		"2006-01-02", // ISO
		"2 1 2006",  // 20 08 1961
		"02012006",  // 06081990
	}
	longDateLayouts = []string{
		"2 de January de 2006", // 31 de Marzo de 1995
		"2 January 2006",       // 12 Enero 1988
	}
)

// Date attempts each known layout in order and returns the first match.
// Spelled-out Spanish months are translated before the long-form layouts run.
// Returns ok=false with a warning when nothing matches.
func Date(s string) (time.Time, bool) {
	if Blank(s) {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	long := strings.ToLower(s)
	for es, en := range spanishMonths {
		if strings.Contains(long, es) {
			long = strings.ReplaceAll(long, es, en)
			break
		}
	}
	for _, layout := range longDateLayouts {
		if t, err := time.Parse(layout, long); err == nil {
			return t, true
		}
	}

	slog.Warn("unparseable date cell", "value", s)
	return time.Time{}, false
}

// numberWords maps spelled-out numerals (Spanish and English, 1-10) used in
// free-text answers.
var numberWords = []struct {
	word  string
	value int
}{
	{"un", 1}, {"uno", 1}, {"una", 1}, {"one", 1},
	{"dos", 2}, {"two", 2}, {"par", 2},
	{"tres", 3}, {"three", 3},
	{"cuatro", 4}, {"four", 4},
	{"cinco", 5}, {"five", 5},
	{"seis", 6}, {"six", 6},
	{"siete", 7}, {"seven", 7},
	{"ocho", 8}, {"eight", 8},
	{"nueve", 9}, {"nine", 9},
	{"diez", 10}, {"ten", 10},
}

var (
	yearsPattern  = regexp.MustCompile(`(\d+)\s*(años|año|anios|anio|years|year)`)
	monthsPattern = regexp.MustCompile(`(\d+)\s*(meses|mes|months|month)`)
	digitsPattern = regexp.MustCompile(`\d+`)
	yearMarkers   = []string{"año", "anio", "year"}
)

// YearsExperience normalizes a free-text "years working with this
// technology" answer to a whole number of years. Months are floor-divided
// into years. Defaults to 0 with a warning when nothing matches.
func YearsExperience(s string) int {
	if Blank(s) {
		return 0
	}
	s = strings.ToLower(strings.TrimSpace(s))

	if n, err := strconv.Atoi(s); err == nil {
		return n
	}

	if m := yearsPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := monthsPattern.FindStringSubmatch(s); m != nil {
		months, _ := strconv.Atoi(m[1])
		return months / 12
	}

	// Literal phrases outrank the numeral vocabulary: "menos de un año"
	// contains "un" but means zero.
	if strings.Contains(s, "menos de un año") || strings.Contains(s, "recién comienzo") {
		return 0
	}

	for _, marker := range yearMarkers {
		if !strings.Contains(s, marker) {
			continue
		}
		for _, nw := range numberWords {
			if strings.Contains(s, nw.word) {
				return nw.value
			}
		}
	}

	slog.Warn("unparseable years of experience", "value", s)
	return 0
}

// EquipmentCount normalizes a free-text "how many printers" answer.
// Multiple digit groups are summed ("2 de fábrica y 1 que armé yo" is 3
// units). Defaults to 1: a respondent describing equipment owns at least one.
func EquipmentCount(s string) int {
	if Blank(s) {
		return 1
	}
	s = strings.ToLower(strings.TrimSpace(s))

	if n, err := strconv.Atoi(s); err == nil {
		return n
	}

	for _, nw := range numberWords {
		if s == nw.word {
			return nw.value
		}
	}

	if nums := digitsPattern.FindAllString(s, -1); len(nums) > 0 {
		total := 0
		for _, num := range nums {
			n, _ := strconv.Atoi(num)
			total += n
		}
		return total
	}

	for _, nw := range numberWords {
		if strings.Contains(s, nw.word) {
			return nw.value
		}
	}

	slog.Warn("unparseable equipment count", "value", s)
	return 1
}

// OrderNumber coerces a free-text order number cell to an int.
// Tolerates decimal-comma artifacts from numeric cells rendered as text.
func OrderNumber(s string) (int, bool) {
	if Blank(s) {
		return 0, false
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}
