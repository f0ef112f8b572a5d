package triage

import "testing"

func kg(v float64) *float64 { return &v }

func TestEstimateShipping_Table(t *testing.T) {
	for size, want := range ShippingTable {
		if got := EstimateShipping(size, nil, "DVD"); got != want {
			t.Errorf("EstimateShipping(%q) = %d, want %d", size, got, want)
		}
	}
	if got := EstimateShipping("xl", nil, ""); got != 1070 {
		t.Errorf("lower-case size: got %d, want 1070", got)
	}
}

func TestEstimateShipping_Default(t *testing.T) {
	tests := []struct {
		size Size
		name string
	}{
		{"", ""},
		{"", "マグカップ"},
		{"XXL", ""},
		// An unrecognized code is not replaced by name inference.
		{"XXL", "DVD"},
	}
	for _, tt := range tests {
		if got := EstimateShipping(tt.size, nil, tt.name); got != 770 {
			t.Errorf("EstimateShipping(%q, nil, %q) = %d, want 770", tt.size, tt.name, got)
		}
	}
}

func TestEstimateShipping_InfersFromName(t *testing.T) {
	if got := EstimateShipping("", nil, "DVD box set"); got != 230 {
		t.Errorf("got %d, want 230", got)
	}
	if got := EstimateShipping("", nil, "PS5"); got != 1070 {
		t.Errorf("got %d, want 1070", got)
	}
	if got := EstimateShipping("M", nil, "PS5"); got != 455 {
		t.Errorf("explicit size should win over name, got %d", got)
	}
}

func TestEstimateShipping_WeightFloors(t *testing.T) {
	tests := []struct {
		size Size
		w    float64
		want int
	}{
		{SizeS, 1.99, 230},
		{SizeS, 2, 770},
		{SizeS, 4.9, 770},
		{SizeS, 5, 1070},
		{SizeS, 10, 1570},
		{SizeM, 0.85, 455},
		{SizeXL, 2, 1070},
		{SizeXL, 12, 1570},
		{"", 6, 1070},
	}
	for _, tt := range tests {
		if got := EstimateShipping(tt.size, kg(tt.w), ""); got != tt.want {
			t.Errorf("EstimateShipping(%q, %v) = %d, want %d", tt.size, tt.w, got, tt.want)
		}
	}
}

func TestEstimateShipping_Monotonic(t *testing.T) {
	for _, size := range []Size{SizeS, SizeM, SizeL, SizeXL, ""} {
		prev := 0
		for w := 0.0; w <= 15; w += 0.25 {
			got := EstimateShipping(size, kg(w), "")
			if got < prev {
				t.Fatalf("size %q: shipping dropped from %d to %d at %.2fkg", size, prev, got, w)
			}
			if base := EstimateShipping(size, nil, ""); got < base {
				t.Fatalf("size %q: %d below base %d at %.2fkg", size, got, base, w)
			}
			prev = got
		}
	}
}
