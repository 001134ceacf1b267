package portal

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EnrollDeviceMessage describes a plan selection submitted by a customer.
type EnrollDeviceMessage struct {
	ProfileID        string     `json:"profile_id"`
	Plan             PlanKey    `json:"plan"`
	AddOns           []AddOn    `json:"add_ons"`
	DeviceBrand      string     `json:"device_brand"`
	DeviceModel      string     `json:"device_model"`
	PurchaseDate     *time.Time `json:"purchase_date"`
	DeviceValueCents int        `json:"device_value_cents"`
	PhotoCount       int        `json:"photo_count"`
	TermsAccepted    bool       `json:"terms_accepted"`

	OnResponse func(*EnrollDeviceResponse) `json:"-"`
}

func (e EnrollDeviceMessage) Type() string { return "enrollment.create" }

type EnrollDeviceResponse struct {
	Enrollment *Enrollment
}

// EnrollDeviceHandler persists a validated enrollment in a transaction.
type EnrollDeviceHandler struct {
	repo RepositoryManager
}

func NewEnrollDeviceHandler(repo RepositoryManager) *EnrollDeviceHandler {
	return &EnrollDeviceHandler{repo: repo}
}

func (h *EnrollDeviceHandler) Execute(ctx context.Context, event EnrollDeviceMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during device enrollment",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *EnrollDeviceHandler) execute(ctx context.Context, event EnrollDeviceMessage) error {
	if err := validateEnrollment(event); err != nil {
		return err
	}

	profileID, err := uuid.Parse(event.ProfileID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid profile identifier")
	}

	total, err := MonthlyTotalCents(event.Plan, event.AddOns)
	if err != nil {
		return err
	}

	enrollment := &Enrollment{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Profiles().GetByID(ctx, profileID.String()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryNotFound, "enrollment profile not found")
		}

		now := time.Now()
		enrollment.ProfileID = profileID
		enrollment.Plan = event.Plan
		enrollment.AddOns = addOnStrings(event.AddOns)
		enrollment.DeviceBrand = event.DeviceBrand
		enrollment.DeviceModel = event.DeviceModel
		enrollment.PurchaseDate = event.PurchaseDate
		enrollment.DeviceValueCents = event.DeviceValueCents
		enrollment.PhotoCount = event.PhotoCount
		enrollment.MonthlyTotalCents = total
		enrollment.TermsAcceptedAt = &now

		if enrollment, err = h.repo.Enrollments().CreateTx(ctx, tx, enrollment); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create enrollment")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "enrollment transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&EnrollDeviceResponse{Enrollment: enrollment})
	}

	return nil
}

func validateEnrollment(event EnrollDeviceMessage) error {
	if !event.Plan.IsValid() {
		return goerrors.New("unknown protection plan", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"plan": string(event.Plan)})
	}

	for _, addOn := range event.AddOns {
		if !addOn.IsValid() {
			return goerrors.New("unknown plan add-on", goerrors.CategoryValidation).
				WithMetadata(map[string]any{"add_on": string(addOn)})
		}
	}

	if event.PhotoCount < 0 || event.PhotoCount > MaxDevicePhotos {
		return goerrors.New("too many device photos", goerrors.CategoryValidation).
			WithMetadata(map[string]any{
				"photo_count": event.PhotoCount,
				"max":         MaxDevicePhotos,
			})
	}

	if !event.TermsAccepted {
		return goerrors.New("terms and conditions must be accepted", goerrors.CategoryValidation)
	}

	if event.DeviceBrand == "" || event.DeviceModel == "" {
		return goerrors.New("device brand and model are required", goerrors.CategoryValidation)
	}

	return nil
}

func addOnStrings(addOns []AddOn) []string {
	if len(addOns) == 0 {
		return nil
	}

	out := make([]string, 0, len(addOns))
	for _, addOn := range addOns {
		out = append(out, string(addOn))
	}
	return out
}
