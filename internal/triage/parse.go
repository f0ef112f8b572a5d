// Package triage holds the pure decision logic of the bot: parsing prices
// and weights out of chat text, estimating shipping, and computing profit.
package triage

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	yenPattern    = regexp.MustCompile(`[0-9]{1,7}`)
	weightPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(kg|g)?`)
)

// bareGramThreshold is the smallest unit-less number read as grams.
const bareGramThreshold = 50

// ExtractYenAmount returns the first run of up to seven digits in text after
// thousands separators are removed. The value is not range checked.
func ExtractYenAmount(text string) (int, bool) {
	m := yenPattern.FindString(strings.ReplaceAll(text, ",", ""))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NormalizeWeight reads a weight in kilograms from text such as "850g",
// "1.2kg" or a bare number. Bare numbers of 50 or more are grams.
func NormalizeWeight(text string) (float64, bool) {
	t := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ',' {
			return -1
		}
		return r
	}, text)
	t = strings.ToLower(t)

	m := weightPattern.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch {
	case m[2] == "g":
		return v / 1000, true
	case m[2] == "" && v >= bareGramThreshold:
		return v / 1000, true
	default:
		return v, true
	}
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
