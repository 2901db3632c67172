package calc

import (
	"testing"

	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	"github.com/stretchr/testify/assert"
)

func TestResolveSalesTier_LastSatisfiedWins(t *testing.T) {
	tiers := []ruledomain.SalesTier{
		{Active: 0, Fixed: 0},
		{Active: 5, Fixed: 1000},
		{Active: 10, Fixed: 2000, Pct: 5},
	}

	tier, found := ResolveSalesTier(tiers, 12)
	assert.True(t, found)
	assert.Equal(t, 10, tier.Active)
	assert.Equal(t, float64(2000), tier.Fixed)

	tier, found = ResolveSalesTier(tiers, 7)
	assert.True(t, found)
	assert.Equal(t, 5, tier.Active)

	tier, found = ResolveSalesTier(tiers, 5)
	assert.True(t, found)
	assert.Equal(t, 5, tier.Active)

	tier, found = ResolveSalesTier(tiers, 0)
	assert.True(t, found)
	assert.Equal(t, 0, tier.Active)
}

func TestResolveSalesTier_NoQualifyingTier(t *testing.T) {
	tiers := []ruledomain.SalesTier{
		{Active: 5, Fixed: 1000},
	}
	_, found := ResolveSalesTier(tiers, 3)
	assert.False(t, found)

	_, found = ResolveSalesTier(nil, 3)
	assert.False(t, found)
}

func TestResolveSalesTier_Monotonic(t *testing.T) {
	tiers := []ruledomain.SalesTier{
		{Active: 0, Fixed: 100},
		{Active: 5, Fixed: 500, Pct: 2},
		{Active: 10, Fixed: 2000, Pct: 5},
	}

	// Increasing the lead count never resolves a lower tier.
	prevFixed := -1.0
	for leads := 0; leads <= 20; leads++ {
		tier, found := ResolveSalesTier(tiers, leads)
		assert.True(t, found)
		assert.GreaterOrEqual(t, tier.Fixed, prevFixed)
		prevFixed = tier.Fixed
	}
}

func TestResolveDispatchTier_Boundaries(t *testing.T) {
	tiers := []ruledomain.DispatchTier{
		{Min: 0, Max: 649, Pct: 5},
		{Min: 650, Max: 2000, Pct: 8},
	}

	// A value exactly at a tier's Min resolves to that tier, not the one below.
	assert.Equal(t, float64(8), ResolveDispatchTier(tiers, 650).Pct)
	assert.Equal(t, float64(5), ResolveDispatchTier(tiers, 649).Pct)
	assert.Equal(t, float64(8), ResolveDispatchTier(tiers, 2000).Pct)
	assert.Equal(t, float64(5), ResolveDispatchTier(tiers, 0).Pct)
}

func TestResolveDispatchTier_OutsideAllRangesIsZeroRate(t *testing.T) {
	tiers := []ruledomain.DispatchTier{
		{Min: 0, Max: 649, Pct: 5},
		{Min: 650, Max: 2000, Pct: 8},
	}
	tier := ResolveDispatchTier(tiers, 2500)
	assert.Equal(t, float64(0), tier.Pct)
}
