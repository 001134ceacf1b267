// Package gcip validates identity tokens issued by a hosted identity
// platform. It lets a deployment keep the hosted provider for
// credentials while the portal consumes the session through the same
// token validation contract as the local provider.
package gcip

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"

	"github.com/covercell/portal"
)

// Config holds the hosted provider's verification settings.
type Config struct {
	// JWKSURL is the provider's key set endpoint.
	JWKSURL string
	// Issuer is the expected iss claim.
	Issuer string
	// Audience is the expected aud claim, usually the project id.
	Audience []string
}

// Validator resolves hosted provider tokens to their subject.
type Validator struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience []string
	logger   portal.Logger
}

var _ portal.TokenValidator = (*Validator)(nil)

type Option func(*Validator)

func WithLogger(l portal.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// New fetches the provider's key set and keeps it refreshed in the
// background.
func New(cfg Config, opts ...Option) (*Validator, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("gcip validator requires a JWKS URL", errors.CategoryValidation)
	}

	v := &Validator{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		logger:   nopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			v.logger.Error("background refresh of provider key set failed", "error", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "failed to fetch provider key set")
	}
	v.jwks = jwks

	return v, nil
}

// UserFromToken verifies a hosted provider token and returns its
// subject claim as the provider identifier.
func (v *Validator) UserFromToken(tokenString string) (string, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if len(v.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, v.jwks.Keyfunc, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			v.logger.Debug("provider token expired")
			return "", portal.ErrTokenExpired
		}
		v.logger.Debug("provider token rejected", "error", err)
		return "", errors.Wrap(err, portal.ErrTokenMalformed.Category, portal.ErrTokenMalformed.Message).
			WithTextCode(portal.ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		v.logger.Debug("provider token missing subject")
		return "", portal.ErrTokenMalformed
	}

	return claims.Subject, nil
}

// Close stops the background key refresh.
func (v *Validator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
