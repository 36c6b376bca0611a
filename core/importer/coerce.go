package importer

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/trezcool/lophoc/core"
)

const dateLayout = "2006-01-02"

var dateLayouts = []string{dateLayout, "02/01/2006", "2/1/2006", "02-01-2006", "2006/01/02"}

// coerceDate turns an Excel date serial or a common date string into YYYY-MM-DD.
// Anything else is returned unchanged so field validation reports it.
func coerceDate(v string) string {
	if v == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format(dateLayout)
		}
		return v
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(dateLayout)
		}
	}
	return v
}

// coerceYear parses a year cell; Excel may hand it over as "2025" or "2025.0".
func coerceYear(v string) (int, bool) {
	if v == "" {
		return 0, true
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

// foldKeyword lowercases s and strips diacritics: "Nữ" -> "nu".
func foldKeyword(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, cases.Fold().String(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

var (
	femaleKeywords = map[string]bool{"nu": true, "female": true, "f": true, "girl": true}
	maleKeywords   = map[string]bool{"nam": true, "male": true, "m": true, "boy": true}
)

// coerceGender maps free text to a gender by its words: "Nam giới" is male, "Female (F)" female.
// Female keywords win when both appear. Unknown non-empty values become "other".
func coerceGender(v string) string {
	words := strings.FieldsFunc(foldKeyword(v), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		if strings.TrimSpace(v) == "" {
			return ""
		}
		return core.GenderOther
	}
	for _, w := range words {
		if femaleKeywords[w] {
			return core.GenderFemale
		}
	}
	for _, w := range words {
		if maleKeywords[w] {
			return core.GenderMale
		}
	}
	return core.GenderOther
}

// splitList splits a comma separated cell, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
