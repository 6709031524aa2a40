package tier_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/tier"
)

var defaultThresholds = []*big.Int{
	big.NewInt(1000),
	big.NewInt(100),
	big.NewInt(10),
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		isAdmin bool

		expectedTier domain.Tier
	}{
		{
			name:         "balance above top threshold is rank 1",
			balance:      5000,
			expectedTier: 1,
		},
		{
			name:         "balance between thresholds is rank 2",
			balance:      150,
			expectedTier: 2,
		},
		{
			name:         "balance exactly at lowest threshold is rank 3",
			balance:      10,
			expectedTier: 3,
		},
		{
			name:         "balance below lowest threshold is ineligible",
			balance:      9,
			expectedTier: domain.TierIneligible,
		},
		{
			name:         "zero balance is ineligible",
			balance:      0,
			expectedTier: domain.TierIneligible,
		},
		{
			name:         "admin with zero balance is rank 0",
			balance:      0,
			isAdmin:      true,
			expectedTier: domain.TierAdmin,
		},
		{
			name:         "admin with high balance is still rank 0",
			balance:      5000,
			isAdmin:      true,
			expectedTier: domain.TierAdmin,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actualTier := tier.Classify(big.NewInt(tc.balance), big.NewInt(0), defaultThresholds, tc.isAdmin)

			require.Equal(t, tc.expectedTier, actualTier)
		})
	}
}

// Exact threshold boundaries must resolve to the rank whose threshold is
// met, not the next one down.
func TestClassify_ThresholdInclusivity(t *testing.T) {
	for i, threshold := range defaultThresholds {
		actualTier := tier.Classify(threshold, big.NewInt(0), defaultThresholds, false)

		require.Equal(t, domain.Tier(i+1), actualTier)
	}
}

// For any two balances b1 < b2, the tier of b2 is at least as desirable
// as the tier of b1.
func TestClassify_Monotonicity(t *testing.T) {
	balances := []int64{0, 5, 9, 10, 11, 99, 100, 101, 999, 1000, 1001, 100000}

	desirability := func(tier domain.Tier) int {
		if tier == domain.TierIneligible {
			return 0
		}
		// lower rank = higher privilege
		return len(defaultThresholds) + 1 - int(tier)
	}

	previous := -1
	for _, balance := range balances {
		current := desirability(tier.Classify(big.NewInt(balance), big.NewInt(0), defaultThresholds, false))

		require.GreaterOrEqual(t, current, previous, "balance %d", balance)

		previous = current
	}
}

func TestClassify_LockedStakeStillCounts(t *testing.T) {
	// Total balance 100 with 95 locked still meets the rank 2 threshold.
	actualTier := tier.Classify(big.NewInt(100), big.NewInt(95), defaultThresholds, false)

	require.Equal(t, domain.Tier(2), actualTier)
}

func TestClassify_NoThresholds(t *testing.T) {
	actualTier := tier.Classify(big.NewInt(100), big.NewInt(0), nil, false)

	require.Equal(t, domain.TierIneligible, actualTier)
}

func TestClassify_NilBalance(t *testing.T) {
	actualTier := tier.Classify(nil, nil, defaultThresholds, false)

	require.Equal(t, domain.TierIneligible, actualTier)
}
