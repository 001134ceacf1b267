package portal

import (
	"github.com/goliatone/go-errors"
)

// PlanKey identifies a protection plan in the catalog.
type PlanKey string

const (
	PlanBasic   PlanKey = "basic"
	PlanPremium PlanKey = "premium"
	PlanFamily  PlanKey = "family"
)

// IsValid checks the key against the catalog
func (k PlanKey) IsValid() bool {
	switch k {
	case PlanBasic, PlanPremium, PlanFamily:
		return true
	default:
		return false
	}
}

// Plan is one entry of the protection plan catalog.
type Plan struct {
	Key          PlanKey  `json:"key"`
	Name         string   `json:"name"`
	MonthlyCents int      `json:"monthly_cents"`
	Features     []string `json:"features"`
}

// Plans returns the protection plan catalog in display order.
func Plans() []Plan {
	return []Plan{
		{
			Key:          PlanBasic,
			Name:         "Basic Protection",
			MonthlyCents: 999,
			Features: []string{
				"Screen damage coverage",
				"Battery replacement",
				"Technical support",
			},
		},
		{
			Key:          PlanPremium,
			Name:         "Premium Protection",
			MonthlyCents: 1999,
			Features: []string{
				"Everything in Basic",
				"Water damage coverage",
				"Theft protection",
				"One free replacement per year",
			},
		},
		{
			Key:          PlanFamily,
			Name:         "Family Protection",
			MonthlyCents: 3499,
			Features: []string{
				"Everything in Premium",
				"Covers up to 4 devices",
				"Shared claim pool",
				"Priority support",
			},
		},
	}
}

// PlanByKey looks up a plan in the catalog.
func PlanByKey(key PlanKey) (Plan, bool) {
	for _, plan := range Plans() {
		if plan.Key == key {
			return plan, true
		}
	}
	return Plan{}, false
}

// AddOn is an optional monthly extra on top of a plan.
type AddOn string

const (
	AddOnExpressReplacement AddOn = "express_replacement"
	AddOnInternational      AddOn = "international"
	AddOnAccessories        AddOn = "accessories"
)

// IsValid checks the add-on against the known set
func (a AddOn) IsValid() bool {
	switch a {
	case AddOnExpressReplacement, AddOnInternational, AddOnAccessories:
		return true
	default:
		return false
	}
}

// AddOns returns the available add-ons in display order.
func AddOns() []AddOn {
	return []AddOn{
		AddOnExpressReplacement,
		AddOnInternational,
		AddOnAccessories,
	}
}

// AddOnCents returns the monthly price of an add-on, zero when unknown.
func AddOnCents(a AddOn) int {
	switch a {
	case AddOnExpressReplacement:
		return 499
	case AddOnInternational:
		return 299
	case AddOnAccessories:
		return 199
	default:
		return 0
	}
}

// AddOnName returns the display name of an add-on.
func AddOnName(a AddOn) string {
	switch a {
	case AddOnExpressReplacement:
		return "Express Replacement"
	case AddOnInternational:
		return "International Coverage"
	case AddOnAccessories:
		return "Accessories Coverage"
	default:
		return string(a)
	}
}

// ParseAddOn safely parses a string into an AddOn
func ParseAddOn(s string) (AddOn, bool) {
	addOn := AddOn(s)
	return addOn, addOn.IsValid()
}

// MaxDevicePhotos is the most photos an enrollment may attach.
const MaxDevicePhotos = 4

// MonthlyTotalCents prices a plan selection with its add-ons. Unknown
// plan keys or add-ons are rejected rather than priced at zero.
func MonthlyTotalCents(key PlanKey, addOns []AddOn) (int, error) {
	plan, ok := PlanByKey(key)
	if !ok {
		return 0, errors.New("unknown protection plan", errors.CategoryValidation).
			WithMetadata(map[string]any{"plan": string(key)})
	}

	total := plan.MonthlyCents
	for _, addOn := range addOns {
		if !addOn.IsValid() {
			return 0, errors.New("unknown plan add-on", errors.CategoryValidation).
				WithMetadata(map[string]any{"add_on": string(addOn)})
		}
		total += AddOnCents(addOn)
	}

	return total, nil
}
