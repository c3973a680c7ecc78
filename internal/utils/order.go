package utils

import (
	"math"

	"github.com/meridian-quant/meridian-trading/internal/backtest/commission"
)

// RoundToDecimalPrecision rounds the quantity down to the given decimal
// precision. Rounding down keeps the order inside the account balance and
// the venue's lot step.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// MeetsMinNotional reports whether an order's notional value clears the
// venue's minimum. Orders below it are rejected by the venue, so callers
// skip them instead of submitting.
func MeetsMinNotional(quantity, price, minNotional float64) bool {
	if minNotional <= 0 {
		return true
	}

	return quantity*price >= minNotional
}

// CalculateMaxQuantity calculates the largest quantity the balance can buy
// at the given price once fees are accounted for.
func CalculateMaxQuantity(balance, price float64, model commission.Model) float64 {
	if price <= 0 || balance <= 0 {
		return 0
	}

	maxQty := balance / price

	// Refine iteratively; the fee depends on the quantity being solved for.
	for i := 0; i < 10; i++ {
		totalCost := maxQty*price + model.Calculate(maxQty, price)
		if totalCost <= balance {
			break
		}

		maxQty *= balance / totalCost
	}

	return maxQty
}

// CalculateOrderQuantityByPercentage sizes an order as a percentage of the
// balance, fee-adjusted.
func CalculateOrderQuantityByPercentage(balance, price float64, model commission.Model, percentage float64) float64 {
	return CalculateMaxQuantity(balance*percentage, price, model)
}
