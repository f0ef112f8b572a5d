package triage

import (
	"net/url"
	"strings"

	"golang.org/x/text/width"
)

// FoldWidth narrows full-width ASCII (digits, letters, the ideographic
// space) so "ＸＬ" and "８５０ｇ" parse like "XL" and "850g".
func FoldWidth(text string) string {
	return width.Fold.String(text)
}

const mercariSearchBase = "https://jp.mercari.com/search?keyword="

// keywordEscaper turns query escaping into path-style escaping: spaces are
// %20 and slashes stay literal.
var keywordEscaper = strings.NewReplacer("+", "%20", "%2F", "/")

// MercariSearchURL builds a marketplace search link for keyword.
func MercariSearchURL(keyword string) string {
	return mercariSearchBase + keywordEscaper.Replace(url.QueryEscape(keyword))
}
