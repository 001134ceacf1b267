package portal

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// SessionChange is a single notification from the identity service's
// session feed. Active reports whether a provider session exists, and
// UserID carries the provider identifier when it does.
type SessionChange struct {
	Active bool
	UserID string
}

// Unsubscribe removes a previously registered callback.
type Unsubscribe func()

// IdentityService is the external identity provider contract. Provider
// errors carry human readable messages suitable for the Notifier.
type IdentityService interface {
	SignIn(ctx context.Context, email, password string) (string, error)
	SignUp(ctx context.Context, email, password string) (string, error)
	SignOut(ctx context.Context) error
	OnSessionChange(fn func(SessionChange)) Unsubscribe
}

// ProfileStore reads and writes profile records keyed by the provider
// identifier. Get returns a not found error when no record exists.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Put(ctx context.Context, id string, record *Profile) error
}

// TokenMinter issues a session token for a provider identifier.
type TokenMinter interface {
	TokenForUser(ctx context.Context, userID string) (string, error)
}

// TokenValidator resolves a session token back to a provider identifier.
type TokenValidator interface {
	UserFromToken(token string) (string, error)
}

// TokenSource is how the HTTP layer carries a provider session across
// requests.
type TokenSource interface {
	TokenMinter
	TokenValidator
}

// Notifier surfaces gateway outcomes to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetExtendedTokenDuration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetSignInRoute() string
	GetHomeRoute() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PORTAL "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] PORTAL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PORTAL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PORTAL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type noopNotifier struct{}

func (noopNotifier) Success(string) {}
func (noopNotifier) Error(string)   {}

type logNotifier struct {
	logger Logger
}

// NewLogNotifier returns a Notifier that writes messages to the logger.
func NewLogNotifier(l Logger) Notifier {
	if l == nil {
		l = defLogger{}
	}
	return logNotifier{logger: l}
}

func (n logNotifier) Success(message string) {
	n.logger.Info("notify: %s", message)
}

func (n logNotifier) Error(message string) {
	n.logger.Warn("notify: %s", message)
}
