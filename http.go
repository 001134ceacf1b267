package portal

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const identityLocalsKey = "portal:identity"

// RouteGuard enforces role-restricted routes over cookie-carried
// sessions. Each request resolves token, provider session and profile
// record from scratch, failing closed at every step, and feeds the
// result through EvaluateGuard.
type RouteGuard struct {
	tokens                 TokenValidator
	profiles               ProfileStore
	cfg                    Config
	routes                 GuardRoutes
	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	Logger                 Logger
	AuthErrorHandler       func(c router.Context, err error) error
	ErrorHandler           func(c router.Context, err error) error
}

func NewRouteGuard(tokens TokenValidator, profiles ProfileStore, cfg Config) (*RouteGuard, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	extendedCookieDuration := cookieDuration
	if cfg.GetExtendedTokenDuration() > 0 {
		extendedCookieDuration = time.Duration(cfg.GetExtendedTokenDuration()) * time.Hour
	}

	routes := DefaultGuardRoutes()
	if cfg.GetSignInRoute() != "" {
		routes.SignIn = cfg.GetSignInRoute()
	}
	if cfg.GetHomeRoute() != "" {
		routes.Home = cfg.GetHomeRoute()
	}

	g := &RouteGuard{
		tokens:                 tokens,
		profiles:               profiles,
		cfg:                    cfg,
		routes:                 routes,
		Logger:                 defLogger{},
		cookieDuration:         cookieDuration,
		extendedCookieDuration: extendedCookieDuration,
	}

	g.ErrorHandler = g.defaultErrHandler
	g.AuthErrorHandler = g.defaultAuthErrHandler

	return g, nil
}

func (a RouteGuard) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a RouteGuard) GetExtendedCookieDuration() time.Duration {
	return a.extendedCookieDuration
}

// Routes returns the guard's redirect targets.
func (a RouteGuard) Routes() GuardRoutes {
	return a.routes
}

// Protected builds middleware restricting a route to the allowed roles.
// An empty set only requires authentication.
func (a *RouteGuard) Protected(allowed ...Role) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			identity, err := a.ResolveIdentity(ctx)
			if err != nil {
				return a.AuthErrorHandler(ctx, err)
			}

			decision := EvaluateGuard(Snapshot{Identity: identity}, a.routes, allowed...)
			if decision.State != GuardAllowed {
				a.Logger.Info(
					"access denied",
					"role", identity.Role.String(),
					"path", ctx.OriginalURL(),
				)
				return ctx.Redirect(decision.RedirectTo, http.StatusSeeOther)
			}

			ctx.Locals(identityLocalsKey, identity)
			return next(ctx)
		}
	}
}

// ResolveIdentity turns the request cookie into a full Identity. A
// missing cookie, an invalid token or an absent profile record all fail
// closed.
func (a *RouteGuard) ResolveIdentity(ctx router.Context) (*Identity, error) {
	token := ctx.Cookies(a.cfg.GetContextKey())
	if token == "" {
		return nil, ErrUnableToFindSession
	}

	uid, err := a.tokens.UserFromToken(token)
	if err != nil {
		return nil, err
	}

	record, err := a.profiles.Get(ctx.Context(), uid)
	if err != nil {
		if errors.IsNotFound(err) || IsProfileMissing(err) {
			return nil, ErrProfileMissing
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "profile lookup failed")
	}

	identity := NewIdentity(uid, record)
	return &identity, nil
}

// IdentityFromContext returns the identity stored by Protected.
func IdentityFromContext(c router.Context) (*Identity, bool) {
	identity, ok := c.Locals(identityLocalsKey).(*Identity)
	return identity, ok && identity != nil
}

// SignIn stores the session token in the auth cookie.
func (a *RouteGuard) SignIn(ctx router.Context, token string, extended bool) {
	duration := a.cookieDuration
	if extended {
		duration = a.extendedCookieDuration
	}
	a.setCookieToken(ctx, token, duration)
}

// SignOut clears the auth cookie.
func (a *RouteGuard) SignOut(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

func (a *RouteGuard) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		return def[0]
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteGuard) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteGuard) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteGuard) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteGuard) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to sign in",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(a.routes.SignIn, statusCode)
}

func (a *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}
