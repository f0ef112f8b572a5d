package vision

import (
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/garyellow/sedori-linebot-go/internal/errors"
)

// ExtractJSONObject returns the text from the first '{' to the last '}',
// dropping any prose the model wrapped around its JSON.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseAnalysis decodes a model reply. Fields with unexpected types are
// treated as unknown; only a reply without a JSON object is an error.
func ParseAnalysis(reply string) (*Analysis, error) {
	raw, ok := ExtractJSONObject(reply)
	if !ok || !gjson.Valid(raw) {
		return nil, apperrors.ErrInvalidAnalysis
	}
	root := gjson.Parse(raw)
	if !root.IsObject() {
		return nil, apperrors.ErrInvalidAnalysis
	}

	a := &Analysis{
		Name:           stringField(root.Get("name")),
		Brand:          stringField(root.Get("brand")),
		Model:          stringField(root.Get("model")),
		JAN:            stringField(root.Get("jan")),
		Category:       stringField(root.Get("category")),
		ConditionGuess: stringField(root.Get("condition_guess")),
		Keywords:       stringList(root.Get("keywords")),
	}
	if v, ok := intField(root.Get("shipping_yen_guess")); ok {
		a.ShippingGuess = &v
	}
	a.PriceRange = priceRange(root.Get("price_range_yen"))

	if tips := root.Get("tips"); tips.IsObject() {
		t := &Tips{
			TitleExample: stringField(tips.Get("title_example")),
			DescPoints:   stringList(tips.Get("desc_points")),
		}
		if t.TitleExample != "" || len(t.DescPoints) > 0 {
			a.Tips = t
		}
	}
	return a, nil
}

// stringField accepts strings and numbers (JAN codes often come back as
// numbers); null, bools, arrays and objects are unknown.
func stringField(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

func stringList(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	for _, item := range r.Array() {
		if s := stringField(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// intField accepts only integral JSON numbers written without a fraction
// or exponent.
func intField(r gjson.Result) (int, bool) {
	if r.Type != gjson.Number || strings.ContainsAny(r.Raw, ".eE") {
		return 0, false
	}
	return int(r.Int()), true
}

// priceRange requires exactly two integers and orders them low to high.
func priceRange(r gjson.Result) *PriceRange {
	if !r.IsArray() {
		return nil
	}
	items := r.Array()
	if len(items) != 2 {
		return nil
	}
	low, okLow := intField(items[0])
	high, okHigh := intField(items[1])
	if !okLow || !okHigh {
		return nil
	}
	if low > high {
		low, high = high, low
	}
	return &PriceRange{Low: low, High: high}
}
