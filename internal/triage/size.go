package triage

import "strings"

// Size is a parcel size code. The zero value means no size is known.
type Size string

const (
	SizeS  Size = "S"  // thin items: discs, books, cards
	SizeM  Size = "M"  // small box
	SizeL  Size = "L"  // 60-80 size parcel
	SizeXL Size = "XL" // 100-120 size parcel
)

// ParseSize accepts an exact size token, ignoring case and surrounding space.
func ParseSize(text string) (Size, bool) {
	s := Size(strings.ToUpper(strings.TrimSpace(text)))
	switch s {
	case SizeS, SizeM, SizeL, SizeXL:
		return s, true
	default:
		return "", false
	}
}

type sizeHint struct {
	size     Size
	keywords []string
}

// sizeHints is checked in order; the first bucket with a matching keyword
// wins. Matching is case-sensitive, so "本" claims "本体" before XL is seen.
var sizeHints = []sizeHint{
	{SizeS, []string{"DVD", "ブルーレイ", "Blu-ray", "CD", "本", "カード"}},
	{SizeM, []string{"コントローラー", "controller", "DualSense", "DualShock"}},
	{SizeL, []string{"ブーツ", "靴", "シューズ"}},
	{SizeXL, []string{"本体", "ゲーム機", "PS5", "Switch", "XBOX"}},
}

// InferSizeFromName guesses a size from keywords in an item name.
func InferSizeFromName(name string) (Size, bool) {
	if name == "" {
		return "", false
	}
	for _, hint := range sizeHints {
		for _, kw := range hint.keywords {
			if strings.Contains(name, kw) {
				return hint.size, true
			}
		}
	}
	return "", false
}
