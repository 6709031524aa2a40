package tier

import (
	"math/big"

	"github.com/agora-labs/gatekeeper/domain"
)

// Classify derives the access tier for a stake balance against a group's
// thresholds. Pure and deterministic: no I/O, no side effects.
//
// Admins are rank 0 unconditionally. Otherwise the total balance is
// compared against the thresholds in descending order and the first rank
// whose threshold is met wins; the comparison is inclusive, so a balance
// exactly at a threshold qualifies for that rank. A balance below the
// lowest threshold is ineligible.
//
// Entitlement is based on the total balance, not balance minus locked:
// locked tokens are still committed to the pool. lockedSum is accepted
// for symmetry with the stake snapshot and reserved for future
// withdrawable-based policies.
func Classify(balance, lockedSum *big.Int, thresholds []*big.Int, isAdmin bool) domain.Tier {
	if isAdmin {
		return domain.TierAdmin
	}

	if balance == nil {
		return domain.TierIneligible
	}

	for i, threshold := range thresholds {
		if balance.Cmp(threshold) >= 0 {
			return domain.Tier(i + 1)
		}
	}

	return domain.TierIneligible
}
