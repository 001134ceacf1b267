package portal

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// RegisterPortalRoutes mounts the sign-in, registration, plan selection
// and dashboard routes. Plan routes are restricted to customers; the
// dashboard only requires authentication.
func RegisterPortalRoutes[T any](app router.Router[T], opts ...PortalControllerOption) {

	controller := NewPortalController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	customerOnly := controller.Guard.Protected(RoleCustomer)
	app.Get(controller.Routes.Plans, customerOnly(controller.PlansShow)).
		SetName("plans.get")
	app.Post(controller.Routes.Plans, customerOnly(controller.EnrollmentCreate)).
		SetName("plans.post")

	authenticated := controller.Guard.Protected()
	app.Get(controller.Routes.Dashboard, authenticated(controller.DashboardShow)).
		SetName("dashboard.get")
}

type PortalControllerRoutes struct {
	Login     string
	Logout    string
	Register  string
	Plans     string
	Dashboard string
}

type PortalControllerViews struct {
	Login     string
	Register  string
	Plans     string
	Dashboard string
}

type PortalController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *PortalControllerRoutes
	Views        *PortalControllerViews
	Gateway      *Gateway
	Guard        *RouteGuard
	Tokens       TokenMinter
	ErrorHandler router.ErrorHandler
}

type PortalControllerOption func(*PortalController) *PortalController

func NewPortalController(opts ...PortalControllerOption) *PortalController {
	c := &PortalController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &PortalControllerRoutes{
			Login:     "/login",
			Logout:    "/logout",
			Register:  "/register",
			Plans:     "/plans",
			Dashboard: "/dashboard",
		},
		Views: &PortalControllerViews{
			Login:     "login",
			Register:  "register",
			Plans:     "plans",
			Dashboard: "dashboard",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in portal controller...")
	}

	if c.Gateway == nil {
		panic("Missing Gateway in portal controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in portal controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenMinter in portal controller...")
	}

	return c
}

func WithControllerLogger(l Logger) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerDebug(debug bool) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		c.Debug = debug
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		c.Repo = repo
		return c
	}
}

func WithControllerGateway(g *Gateway) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		c.Gateway = g
		return c
	}
}

func WithControllerGuard(g *RouteGuard) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		c.Guard = g
		return c
	}
}

func WithControllerTokens(t TokenMinter) PortalControllerOption {
	return func(c *PortalController) *PortalController {
		c.Tokens = t
		return c
	}
}

func (a *PortalController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports if the session should outlive the browser
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *PortalController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	identity, err := a.Gateway.login(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{
				"authentication": userMessage(err),
			},
			"record": payload,
		})
	}

	token, err := a.Tokens.TokenForUser(ctx.Context(), identity.ID)
	if err != nil {
		a.Logger.Error("login token mint: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	a.Guard.SignIn(ctx, token, payload.GetExtendedSession())

	redirect := a.Guard.GetRedirect(ctx, a.Routes.Dashboard)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Login successful!",
	}).Redirect(redirect, fiber.StatusSeeOther)
}

func (a *PortalController) LogOut(ctx router.Context) error {
	a.Gateway.Logout(ctx.Context())
	a.Guard.SignOut(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *PortalController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegistrationCreatePayload{},
		"plans":  Plans(),
	})
}

// RegistrationCreatePayload is the form payload. Role is bound but never
// honored: every new account registers as a customer.
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Address         string `form:"address" json:"address"`
	City            string `form:"city" json:"city"`
	State           string `form:"state" json:"state"`
	ZipCode         string `form:"zip_code" json:"zip_code"`
	Role            string `form:"role" json:"role"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload. The password confirmation is
// checked here, before any provider call can happen.
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber("US"))),
		validation.Field(&r.ZipCode, validation.Length(0, 10)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(6, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *PortalController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	if a.Debug {
		a.Logger.Debug("register payload: %s", print.MaybePrettyJSON(payload))
	}

	fields := ProfileFields{
		Name:    strings.TrimSpace(payload.FirstName + " " + payload.LastName),
		Phone:   payload.Phone,
		Address: payload.Address,
		City:    payload.City,
		State:   payload.State,
		ZipCode: payload.ZipCode,
	}

	identity, err := a.Gateway.register(ctx.Context(), payload.Email, payload.Password, fields)
	if err != nil {
		a.Logger.Error("register account: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  userMessage(err),
			"system_message": "Error creating account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"registration": userMessage(err)},
		})
	}

	if token, err := a.Tokens.TokenForUser(ctx.Context(), identity.ID); err == nil {
		a.Guard.SignIn(ctx, token, false)
	} else {
		a.Logger.Error("register token mint: ", "error", err)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Registration successful!",
	}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
}

func (a *PortalController) PlansShow(ctx router.Context) error {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return a.Guard.AuthErrorHandler(ctx, ErrUnableToFindSession)
	}

	return ctx.Render(a.Views.Plans, router.ViewContext{
		"identity":   identity,
		"plans":      Plans(),
		"add_ons":    AddOns(),
		"max_photos": MaxDevicePhotos,
		"errors":     map[string]string{},
		"record":     EnrollmentCreatePayload{},
	})
}

// EnrollmentCreatePayload is the plan selection form payload.
type EnrollmentCreatePayload struct {
	Plan             string   `form:"plan" json:"plan"`
	AddOns           []string `form:"add_ons" json:"add_ons"`
	DeviceBrand      string   `form:"device_brand" json:"device_brand"`
	DeviceModel      string   `form:"device_model" json:"device_model"`
	PurchaseDate     string   `form:"purchase_date" json:"purchase_date"`
	DeviceValueCents int      `form:"device_value_cents" json:"device_value_cents"`
	PhotoCount       int      `form:"photo_count" json:"photo_count"`
	Terms            bool     `form:"terms" json:"terms"`
}

// Validate will validate the payload
func (r EnrollmentCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Plan,
			validation.Required,
			validation.In(string(PlanBasic), string(PlanPremium), string(PlanFamily)),
		),
		validation.Field(&r.AddOns, validation.By(validateAddOnKeys)),
		validation.Field(&r.DeviceBrand, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.DeviceModel, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.PurchaseDate, validation.Date("2006-01-02")),
		validation.Field(&r.DeviceValueCents, validation.Min(0)),
		validation.Field(&r.PhotoCount, validation.Min(0), validation.Max(MaxDevicePhotos)),
		validation.Field(&r.Terms, validation.Required),
	)
}

func (a *PortalController) EnrollmentCreate(ctx router.Context) error {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return a.Guard.AuthErrorHandler(ctx, ErrUnableToFindSession)
	}

	payload := new(EnrollmentCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("enrollment parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Plans, router.ViewContext{
			"identity": identity,
			"plans":    Plans(),
			"add_ons":  AddOns(),
			"errors":   map[string]string{"form": "Failed to parse form"},
			"record":   payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("enrollment validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Plans, router.ViewContext{
			"identity":   identity,
			"plans":      Plans(),
			"add_ons":    AddOns(),
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var purchaseDate *time.Time
	if payload.PurchaseDate != "" {
		if d, err := time.Parse("2006-01-02", payload.PurchaseDate); err == nil {
			purchaseDate = &d
		}
	}

	addOns := make([]AddOn, 0, len(payload.AddOns))
	for _, key := range payload.AddOns {
		if addOn, ok := ParseAddOn(key); ok {
			addOns = append(addOns, addOn)
		}
	}

	var res *EnrollDeviceResponse
	req := EnrollDeviceMessage{
		ProfileID:        identity.ID,
		Plan:             PlanKey(payload.Plan),
		AddOns:           addOns,
		DeviceBrand:      payload.DeviceBrand,
		DeviceModel:      payload.DeviceModel,
		PurchaseDate:     purchaseDate,
		DeviceValueCents: payload.DeviceValueCents,
		PhotoCount:       payload.PhotoCount,
		TermsAccepted:    payload.Terms,
		OnResponse: func(resp *EnrollDeviceResponse) {
			res = resp
		},
	}

	enrollDevice := EnrollDeviceHandler{repo: a.Repo}
	if err := enrollDevice.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("enrollment create error: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  userMessage(err),
			"system_message": "Error creating enrollment",
		}).Render(a.Views.Plans, router.ViewContext{
			"identity": identity,
			"plans":    Plans(),
			"add_ons":  AddOns(),
			"record":   payload,
			"errors":   map[string]string{"enrollment": userMessage(err)},
		})
	}

	if a.Debug {
		a.Logger.Debug("enrollment created: %s", print.MaybePrettyJSON(res))
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Your device is now protected!",
	}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
}

func (a *PortalController) DashboardShow(ctx router.Context) error {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return a.Guard.AuthErrorHandler(ctx, ErrUnableToFindSession)
	}

	viewCtx := router.ViewContext{
		"identity": identity,
		"is_staff": identity.Role.IsStaff(),
	}

	if identity.Role == RoleCustomer {
		if profileID, err := uuid.Parse(identity.ID); err == nil {
			records, err := a.Repo.Enrollments().ListByProfile(ctx.Context(), profileID)
			if err != nil {
				a.Logger.Error("dashboard enrollments: ", "error", err)
			}
			viewCtx["enrollments"] = records
		}
	}

	return ctx.Render(a.Views.Dashboard, viewCtx)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidatePhoneNumber checks the value parses as a valid number for the
// given region. Empty values pass; pair with Required when needed.
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}

		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			return errors.New("must be a valid phone number")
		}

		if !phonenumbers.IsValidNumber(num) {
			return errors.New("must be a valid phone number")
		}

		return nil
	}
}

func validateAddOnKeys(value any) error {
	keys, _ := value.([]string)
	for _, key := range keys {
		if _, ok := ParseAddOn(key); !ok {
			return errors.New("unknown add-on selection")
		}
	}
	return nil
}

// FormatValidationErrorToMap flattens ozzo validation errors into a view
// friendly field to message map
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	if err != nil {
		out["form"] = err.Error()
	}

	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
