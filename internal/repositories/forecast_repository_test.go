package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "subforecast/internal/models/db_models"
)

func strPtr(s string) *string { return &s }

func TestMergeExpiringByPlan_CountsAdd(t *testing.T) {
	// Plan "A": 5 keys still expiring this month, 3 whose previous cycle
	// ended this month but have already renewed. The baseline must carry
	// all 8.
	current := map[string]PlanSnapshot{
		"A": {Count: 5, PriceMinor: 1000, Bucket: dbm.BucketMonthly},
	}
	prev := map[string]PlanSnapshot{
		"A": {Count: 3, PriceMinor: 1000, Bucket: dbm.BucketMonthly},
	}

	merged := MergeExpiringByPlan(current, prev)
	require.Contains(t, merged, "A")
	assert.Equal(t, int64(8), merged["A"].Count)
	assert.Equal(t, int64(1000), merged["A"].PriceMinor)
}

func TestMergeExpiringByPlan_DisjointPlansUnion(t *testing.T) {
	current := map[string]PlanSnapshot{
		"A": {Count: 2, PriceMinor: 500, Bucket: dbm.BucketMonthly},
	}
	prev := map[string]PlanSnapshot{
		"B": {Count: 4, PriceMinor: 9000, Bucket: dbm.BucketYearly},
	}

	merged := MergeExpiringByPlan(current, prev)
	assert.Len(t, merged, 2)
	assert.Equal(t, int64(2), merged["A"].Count)
	assert.Equal(t, int64(4), merged["B"].Count)
}

func TestMergeExpiringByPlan_NonZeroPriceWins(t *testing.T) {
	current := map[string]PlanSnapshot{
		"A": {Count: 1, PriceMinor: 0, Bucket: dbm.BucketMonthly},
	}
	prev := map[string]PlanSnapshot{
		"A": {Count: 1, PriceMinor: 750, Bucket: dbm.BucketMonthly},
	}

	merged := MergeExpiringByPlan(current, prev)
	assert.Equal(t, int64(750), merged["A"].PriceMinor)
	assert.Equal(t, int64(2), merged["A"].Count)
}

func TestMergeExpiringByPlan_FillsMissingAttributes(t *testing.T) {
	months := int32(1)
	current := map[string]PlanSnapshot{
		"A": {Count: 1, PriceMinor: 100},
	}
	prev := map[string]PlanSnapshot{
		"A": {
			Count:        1,
			PriceMinor:   100,
			GroupCode:    strPtr("1m"),
			PeriodMonths: &months,
			Bucket:       dbm.BucketMonthly,
		},
	}

	merged := MergeExpiringByPlan(current, prev)
	require.NotNil(t, merged["A"].GroupCode)
	assert.Equal(t, "1m", *merged["A"].GroupCode)
	require.NotNil(t, merged["A"].PeriodMonths)
	assert.Equal(t, int32(1), *merged["A"].PeriodMonths)
	assert.Equal(t, dbm.BucketMonthly, merged["A"].Bucket)
}

func TestMergeExpiringByPlan_EmptyInputs(t *testing.T) {
	assert.Empty(t, MergeExpiringByPlan(nil, nil))

	only := map[string]PlanSnapshot{"A": {Count: 1}}
	merged := MergeExpiringByPlan(only, nil)
	assert.Equal(t, int64(1), merged["A"].Count)
}
