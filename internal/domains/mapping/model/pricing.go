package model

import (
	"math"

	"github.com/rs/zerolog/log"
)

// ComputeChannelPrice applies a mapping's adjustment to a room's base price.
// Percentage adjustments are relative to the base, fixed adjustments are
// absolute amounts in the hotel's currency. The result is rounded to two
// decimals; a negative result is clamped to zero since no channel accepts a
// negative rate.
func ComputeChannelPrice(basePrice float64, adjustmentType string, adjustmentValue float64) float64 {
	price := basePrice

	switch adjustmentType {
	case AdjustmentPercentage:
		price = basePrice + basePrice*adjustmentValue/100
	case AdjustmentFixed:
		price = basePrice + adjustmentValue
	}

	price = math.Round(price*100) / 100

	if price < 0 {
		log.Warn().
			Float64("basePrice", basePrice).
			Str("adjustmentType", adjustmentType).
			Float64("adjustmentValue", adjustmentValue).
			Msg("channel price clamped to zero")

		return 0
	}

	return price
}
