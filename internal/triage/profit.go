package triage

import "math"

// DefaultFeeRate is the marketplace sales commission.
const DefaultFeeRate = 0.10

// ComputeProfit returns sell minus fee, shipping and cost. The fee is
// sell*feeRate rounded half to even. Losses are returned as negatives.
func ComputeProfit(sell, cost, ship int, feeRate float64) int {
	fee := int(math.RoundToEven(float64(sell) * feeRate))
	return sell - fee - ship - cost
}

// MidpointPrice is the rounded (half to even) midpoint of a price range.
func MidpointPrice(low, high int) int {
	return int(math.RoundToEven(float64(low+high) / 2))
}
