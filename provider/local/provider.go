// Package local implements the portal identity service over the
// accounts repository: bcrypt credentials, login attempt throttling,
// HS256 session tokens, and a session change feed for embedding
// clients.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"

	"github.com/covercell/portal"
)

// MaxLoginAttempts is the maximum number of attempts an account gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// MinPasswordLength is the provider's password floor
var MinPasswordLength = 6

// coolDownExpired reports whether the last failed attempt is older than
// the cool down window. The window is a duration expression like "24h".
func coolDownExpired(last time.Time, window string) (bool, error) {
	d, err := time.ParseDuration(window)
	if err != nil {
		return false, err
	}
	return time.Since(last) > d, nil
}

// AccountSource is the slice of the accounts repository the provider
// needs.
type AccountSource interface {
	GetByEmail(ctx context.Context, email string) (*portal.Account, error)
	Register(ctx context.Context, account *portal.Account) (*portal.Account, error)
	TrackAttemptedLogin(ctx context.Context, account *portal.Account) error
	TrackSuccessfulLogin(ctx context.Context, account *portal.Account) error
}

type Option func(*Provider)

func WithLogger(l portal.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Provider is the password backed identity service.
type Provider struct {
	accounts        AccountSource
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          portal.Logger

	mu           sync.Mutex
	listeners    map[int]func(portal.SessionChange)
	nextListener int
}

var (
	_ portal.IdentityService = (*Provider)(nil)
	_ portal.TokenSource     = (*Provider)(nil)
)

func New(accounts AccountSource, cfg portal.Config, opts ...Option) *Provider {
	p := &Provider{
		accounts:        accounts,
		signingKey:      []byte(cfg.GetSigningKey()),
		tokenExpiration: cfg.GetTokenExpiration(),
		issuer:          cfg.GetIssuer(),
		audience:        cfg.GetAudience(),
		logger:          nopLogger{},
		listeners:       map[int]func(portal.SessionChange){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// SignIn verifies the credentials and returns the account identifier.
// Failed attempts are tracked; once an account trips MaxLoginAttempts
// inside the cool down window it is throttled.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", portal.ErrMissingCredentials
	}

	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", portal.ErrMismatchedHashAndPassword
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if account.LoginAttemptAt != nil {
		expired, err := coolDownExpired(*account.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			account.LoginAttempts = 0
		}
	}

	// if we have too many attempts in the given window, cool off!
	if account.LoginAttempts > MaxLoginAttempts {
		return "", portal.ErrTooManyLoginAttempts
	}

	if err := portal.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if err2 := p.accounts.TrackAttemptedLogin(ctx, account); err2 != nil {
			return "", errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return "", portal.ErrMismatchedHashAndPassword
	}

	if err := p.accounts.TrackSuccessfulLogin(ctx, account); err != nil {
		p.logger.Error("failed to track successful login", "error", err)
	}

	uid := account.ID.String()
	p.emit(portal.SessionChange{Active: true, UserID: uid})

	return uid, nil
}

// SignUp creates a credential record and returns its identifier. It
// does not emit a session change: callers finish profile setup first
// and then establish the session explicitly.
func (p *Provider) SignUp(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", portal.ErrMissingCredentials
	}

	if len(password) < MinPasswordLength {
		return "", portal.ErrWeakPassword
	}

	if _, err := p.accounts.GetByEmail(ctx, email); err == nil {
		return "", portal.ErrDuplicateAccount
	} else if !errors.IsNotFound(err) {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to check for existing account")
	}

	hash, err := portal.HashPassword(password)
	if err != nil {
		return "", err
	}

	account, err := p.accounts.Register(ctx, &portal.Account{
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryConflict, "could not create account")
	}

	return account.ID.String(), nil
}

// SignOut ends the current session and notifies listeners.
func (p *Provider) SignOut(ctx context.Context) error {
	p.emit(portal.SessionChange{Active: false})
	return nil
}

// OnSessionChange registers a listener on the session feed.
func (p *Provider) OnSessionChange(fn func(portal.SessionChange)) portal.Unsubscribe {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) emit(change portal.SessionChange) {
	p.mu.Lock()
	listeners := make([]func(portal.SessionChange), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

// TokenForUser mints an HS256 session token for the account.
func (p *Provider) TokenForUser(ctx context.Context, userID string) (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Issuer:    p.issuer,
		Subject:   userID,
		Audience:  p.audience,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(p.tokenExpiration) * time.Hour)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(p.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// UserFromToken validates a session token and returns its subject.
func (p *Provider) UserFromToken(tokenString string) (string, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if p.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(p.issuer))
	}
	if len(p.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(p.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			p.logger.Error("token validation encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", portal.ErrTokenExpired
		}
		return "", errors.Wrap(err, portal.ErrTokenMalformed.Category, portal.ErrTokenMalformed.Message).
			WithTextCode(portal.ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", portal.ErrTokenMalformed
	}

	return claims.Subject, nil
}
