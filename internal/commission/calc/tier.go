// Package calc holds the pure commission math. Nothing here touches I/O, so
// every function is deterministic given identical inputs.
package calc

import (
	"math"

	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
)

// ResolveSalesTier walks the tier table in the order provided and keeps the
// last tier whose threshold is satisfied. Tiers must be supplied in ascending
// Active order so this yields the highest qualifying tier; the resolver does
// not enforce that precondition.
func ResolveSalesTier(tiers []ruledomain.SalesTier, activeLeads int) (ruledomain.SalesTier, bool) {
	var applied ruledomain.SalesTier
	found := false
	for _, tier := range tiers {
		if tier.Active <= activeLeads {
			applied = tier
			found = true
		}
	}
	return applied, found
}

// ResolveDispatchTier returns the first tier whose closed [Min, Max] range
// contains the invoice total. Ranges are caller-guaranteed non-overlapping;
// a total outside every range resolves to a zero-rate tier.
func ResolveDispatchTier(tiers []ruledomain.DispatchTier, invoiceTotal float64) ruledomain.DispatchTier {
	for _, tier := range tiers {
		if invoiceTotal >= tier.Min && invoiceTotal <= tier.Max {
			return tier
		}
	}
	return ruledomain.DispatchTier{}
}

func roundMoney(raw float64) float64 {
	return math.Round(raw*100) / 100
}
