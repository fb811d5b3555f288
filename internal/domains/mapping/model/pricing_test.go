package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeChannelPrice(t *testing.T) {
	tests := []struct {
		name            string
		basePrice       float64
		adjustmentType  string
		adjustmentValue float64
		expected        float64
	}{
		{name: "fixed markup", basePrice: 1000, adjustmentType: AdjustmentFixed, adjustmentValue: 500, expected: 1500},
		{name: "fixed discount", basePrice: 1000, adjustmentType: AdjustmentFixed, adjustmentValue: -250, expected: 750},
		{name: "percentage markup", basePrice: 1000, adjustmentType: AdjustmentPercentage, adjustmentValue: 10, expected: 1100},
		{name: "percentage discount", basePrice: 1000, adjustmentType: AdjustmentPercentage, adjustmentValue: -15, expected: 850},
		{name: "rounds to two decimals", basePrice: 99.99, adjustmentType: AdjustmentPercentage, adjustmentValue: 10, expected: 109.99},
		{name: "negative result clamps to zero", basePrice: 100, adjustmentType: AdjustmentFixed, adjustmentValue: -150, expected: 0},
		{name: "unknown type keeps base", basePrice: 1000, adjustmentType: "bogus", adjustmentValue: 50, expected: 1000},
		{name: "zero adjustment", basePrice: 1000, adjustmentType: AdjustmentPercentage, adjustmentValue: 0, expected: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeChannelPrice(tt.basePrice, tt.adjustmentType, tt.adjustmentValue))
		})
	}
}
