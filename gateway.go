package portal

import (
	"context"

	"github.com/goliatone/go-errors"
)

type GatewayOption func(*Gateway)

func WithGatewayLogger(l Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithGatewayNotifier(n Notifier) GatewayOption {
	return func(g *Gateway) {
		if n != nil {
			g.notifier = n
		}
	}
}

// Gateway orchestrates login, registration and logout against the
// identity service and the profile store. Provider errors never escape;
// every outcome surfaces through the Notifier and the boolean result.
type Gateway struct {
	provider IdentityService
	profiles ProfileStore
	store    *Store
	logger   Logger
	notifier Notifier
}

// ProfileFields carries the registration form values destined for the
// profile record. Role is not among them: new accounts are always
// customers, whatever the form asked for.
type ProfileFields struct {
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	ZipCode string
}

func NewGateway(provider IdentityService, profiles ProfileStore, store *Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider: provider,
		profiles: profiles,
		store:    store,
		logger:   defLogger{},
		notifier: noopNotifier{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Login signs the user in and resolves their profile. It returns true
// only when both the provider session and the profile record resolve;
// a session without a profile fails closed and clears the store.
func (g *Gateway) Login(ctx context.Context, email, password string) bool {
	if _, err := g.login(ctx, email, password); err != nil {
		g.notifier.Error(userMessage(err))
		return false
	}

	g.notifier.Success("Login successful!")
	return true
}

func (g *Gateway) login(ctx context.Context, email, password string) (*Identity, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	op := g.store.begin()

	uid, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		g.logger.Warn("provider sign-in failed for %s: %v", email, err)
		g.store.finish(op, nil, nil)
		return nil, err
	}

	record, err := g.profiles.Get(ctx, uid)
	if err != nil {
		if errors.IsNotFound(err) || IsProfileMissing(err) {
			g.logger.Warn("account %s authenticated but has no profile record", uid)
			g.store.finish(op, nil, ErrProfileMissing)
			return nil, ErrProfileMissing
		}

		g.logger.Error("profile lookup failed for %s: %v", uid, err)
		wrapped := errors.Wrap(err, errors.CategoryInternal, "profile lookup failed")
		g.store.finish(op, nil, wrapped)
		return nil, wrapped
	}

	identity := NewIdentity(uid, record)
	g.store.finish(op, &identity, nil)
	return &identity, nil
}

// Register creates a provider account and writes its profile record. The
// stored role is always customer and the name defaults when blank. When
// the profile write fails after the account was created there is no
// compensating delete: the orphaned account fails closed at every later
// login until the record exists.
func (g *Gateway) Register(ctx context.Context, email, password string, fields ProfileFields) bool {
	if _, err := g.register(ctx, email, password, fields); err != nil {
		g.notifier.Error(userMessage(err))
		return false
	}

	g.notifier.Success("Registration successful!")
	return true
}

func (g *Gateway) register(ctx context.Context, email, password string, fields ProfileFields) (*Identity, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	op := g.store.begin()

	uid, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		g.logger.Warn("provider sign-up failed for %s: %v", email, err)
		g.store.settle(op)
		return nil, err
	}

	record := &Profile{
		Role:    RoleCustomer,
		Name:    fields.Name,
		Email:   email,
		Phone:   fields.Phone,
		Address: fields.Address,
		City:    fields.City,
		State:   fields.State,
		ZipCode: fields.ZipCode,
	}
	if record.Name == "" {
		record.Name = DefaultProfileName
	}

	if err := g.profiles.Put(ctx, uid, record); err != nil {
		g.logger.Error("profile write failed for new account %s: %v", uid, err)
		g.store.settle(op)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to save profile")
	}

	identity := NewIdentity(uid, record)
	g.store.finish(op, &identity, nil)
	return &identity, nil
}

// Logout signs out of the provider and clears the store unconditionally,
// even when the provider call fails.
func (g *Gateway) Logout(ctx context.Context) {
	op := g.store.begin()

	if err := g.provider.SignOut(ctx); err != nil {
		g.logger.Warn("provider sign-out failed: %v", err)
	}

	g.store.finish(op, nil, nil)
	g.notifier.Success("Logged out successfully")
}
