package portal_test

import (
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercell/portal"
)

func TestPlansCatalog(t *testing.T) {
	plans := portal.Plans()
	require.Len(t, plans, 3)

	prices := map[portal.PlanKey]int{}
	for _, plan := range plans {
		assert.True(t, plan.Key.IsValid())
		assert.NotEmpty(t, plan.Name)
		assert.NotEmpty(t, plan.Features)
		prices[plan.Key] = plan.MonthlyCents
	}

	assert.Equal(t, 999, prices[portal.PlanBasic])
	assert.Equal(t, 1999, prices[portal.PlanPremium])
	assert.Equal(t, 3499, prices[portal.PlanFamily])
}

func TestPlanByKey(t *testing.T) {
	plan, ok := portal.PlanByKey(portal.PlanPremium)
	require.True(t, ok)
	assert.Equal(t, "Premium Protection", plan.Name)

	_, ok = portal.PlanByKey("gold")
	assert.False(t, ok)
}

func TestAddOnCents(t *testing.T) {
	assert.Equal(t, 499, portal.AddOnCents(portal.AddOnExpressReplacement))
	assert.Equal(t, 299, portal.AddOnCents(portal.AddOnInternational))
	assert.Equal(t, 199, portal.AddOnCents(portal.AddOnAccessories))
	assert.Equal(t, 0, portal.AddOnCents("insurance"))
}

func TestParseAddOn(t *testing.T) {
	addOn, ok := portal.ParseAddOn("international")
	require.True(t, ok)
	assert.Equal(t, portal.AddOnInternational, addOn)

	_, ok = portal.ParseAddOn("extended_warranty")
	assert.False(t, ok)
}

func TestMonthlyTotalCents(t *testing.T) {
	tests := []struct {
		name     string
		plan     portal.PlanKey
		addOns   []portal.AddOn
		expected int
		wantErr  bool
	}{
		{
			name:     "plan without add-ons",
			plan:     portal.PlanBasic,
			expected: 999,
		},
		{
			name:     "plan with one add-on",
			plan:     portal.PlanPremium,
			addOns:   []portal.AddOn{portal.AddOnExpressReplacement},
			expected: 2498,
		},
		{
			name: "plan with every add-on",
			plan: portal.PlanFamily,
			addOns: []portal.AddOn{
				portal.AddOnExpressReplacement,
				portal.AddOnInternational,
				portal.AddOnAccessories,
			},
			expected: 4496,
		},
		{
			name:    "unknown plan rejected",
			plan:    "gold",
			wantErr: true,
		},
		{
			name:    "unknown add-on rejected instead of priced at zero",
			plan:    portal.PlanBasic,
			addOns:  []portal.AddOn{"extended_warranty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := portal.MonthlyTotalCents(tt.plan, tt.addOns)

			if tt.wantErr {
				require.Error(t, err)

				var richErr *errors.Error
				require.ErrorAs(t, err, &richErr)
				assert.Equal(t, errors.CategoryValidation, richErr.Category)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, total)
		})
	}
}
