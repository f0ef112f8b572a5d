package triage

import (
	"math"
	"testing"
)

func TestExtractYenAmount(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"仕入れ 980", 980, true},
		{"売れた 2,800円", 2800, true},
		{"売値3000", 3000, true},
		{"no numbers", 0, false},
		{"", 0, false},
		{"12345678", 1234567, true},
		{"仕入れ 0", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ExtractYenAmount(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractYenAmount(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeWeight(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"850g", 0.85, true},
		{"1.2kg", 1.2, true},
		{"850", 0.85, true},
		{"1.2", 1.2, true},
		{"abc", 0, false},
		{"1.2 KG", 1.2, true},
		{"1,200g", 1.2, true},
		{"49", 49, true},
		{"50", 0.05, true},
		{"重さ 3kg", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeWeight(tt.in)
			if ok != tt.wantOK || math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeWeight(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsDigits(t *testing.T) {
	for in, want := range map[string]bool{
		"850":   true,
		"":      false,
		"8 50":  false,
		"850g":  false,
		"１２３": false,
	} {
		if got := IsDigits(in); got != want {
			t.Errorf("IsDigits(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseSize(t *testing.T) {
	for _, in := range []string{"S", "m", " l ", "xl", "XL"} {
		if _, ok := ParseSize(in); !ok {
			t.Errorf("ParseSize(%q) should succeed", in)
		}
	}
	for _, in := range []string{"", "XXL", "small", "S M"} {
		if _, ok := ParseSize(in); ok {
			t.Errorf("ParseSize(%q) should fail", in)
		}
	}
}

func TestInferSizeFromName(t *testing.T) {
	tests := []struct {
		name   string
		want   Size
		wantOK bool
	}{
		{"DVD box set", SizeS, true},
		{"ワイヤレスコントローラー", SizeM, true},
		{"DualSense Edge", SizeM, true},
		{"レザーブーツ", SizeL, true},
		{"PS5 デジタル・エディション", SizeXL, true},
		{"Nintendo Switch", SizeXL, true},
		// The S bucket is checked first, so "本" wins over "本体".
		{"Switch本体", SizeS, true},
		{"dvd", "", false},
		{"マグカップ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferSizeFromName(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("InferSizeFromName(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFoldWidth(t *testing.T) {
	tests := map[string]string{
		"ＸＬ":          "XL",
		"８５０ｇ":        "850g",
		"仕入れ　９８０":     "仕入れ 980",
		"1800〜3500円": "1800〜3500円",
	}
	for in, want := range tests {
		if got := FoldWidth(in); got != want {
			t.Errorf("FoldWidth(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMercariSearchURL(t *testing.T) {
	tests := map[string]string{
		"DVD box": "https://jp.mercari.com/search?keyword=DVD%20box",
		"不明":      "https://jp.mercari.com/search?keyword=%E4%B8%8D%E6%98%8E",
		"a&b=c":   "https://jp.mercari.com/search?keyword=a%26b%3Dc",
		"PS5/本体":  "https://jp.mercari.com/search?keyword=PS5/%E6%9C%AC%E4%BD%93",
		"1+1":     "https://jp.mercari.com/search?keyword=1%2B1",
	}
	for in, want := range tests {
		if got := MercariSearchURL(in); got != want {
			t.Errorf("MercariSearchURL(%q) = %q, want %q", in, got, want)
		}
	}
}
