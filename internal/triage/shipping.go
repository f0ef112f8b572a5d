package triage

import "strings"

// ShippingTable is the base yen cost per size code.
var ShippingTable = map[Size]int{
	SizeS:  230,
	SizeM:  455,
	SizeL:  770,
	SizeXL: 1070,
}

// heavySurcharge is added on top of XL for items of 10kg or more.
const heavySurcharge = 500

// EstimateShipping returns a yen shipping estimate. An empty size is inferred
// from name and otherwise defaults to L; unknown codes cost the same as L.
// A known weight raises the result to per-weight floors, never lowers it.
func EstimateShipping(size Size, weightKg *float64, name string) int {
	s := Size(strings.ToUpper(strings.TrimSpace(string(size))))
	if s == "" {
		if inferred, ok := InferSizeFromName(name); ok {
			s = inferred
		} else {
			s = SizeL
		}
	}

	cost, ok := ShippingTable[s]
	if !ok {
		cost = ShippingTable[SizeL]
	}

	if weightKg == nil {
		return cost
	}
	switch w := *weightKg; {
	case w >= 10:
		cost = max(cost, ShippingTable[SizeXL]+heavySurcharge)
	case w >= 5:
		cost = max(cost, ShippingTable[SizeXL])
	case w >= 2:
		cost = max(cost, ShippingTable[SizeL])
	}
	return cost
}
