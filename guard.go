package portal

// GuardState is the route guard's decision state.
type GuardState string

const (
	// GuardResolving means the session is still being resolved; render a
	// placeholder, never redirect.
	GuardResolving GuardState = "resolving"
	// GuardDenied means access was refused and a redirect target is set.
	GuardDenied GuardState = "denied"
	// GuardAllowed means the route may render.
	GuardAllowed GuardState = "allowed"
)

// GuardRoutes holds the redirect targets for denied access.
type GuardRoutes struct {
	// SignIn receives unauthenticated visitors.
	SignIn string
	// Home receives authenticated visitors with the wrong role.
	Home string
}

// DefaultGuardRoutes returns the standard redirect targets.
func DefaultGuardRoutes() GuardRoutes {
	return GuardRoutes{SignIn: "/login", Home: "/"}
}

// GuardDecision is the outcome of evaluating a snapshot against a
// route's role requirements.
type GuardDecision struct {
	State      GuardState
	RedirectTo string
}

// EvaluateGuard decides what a role-restricted route should do with the
// given session snapshot. While the session is resolving it never
// redirects. Once resolved: no identity sends the visitor to sign in,
// the wrong role sends them home, otherwise access is allowed.
func EvaluateGuard(snap Snapshot, routes GuardRoutes, allowed ...Role) GuardDecision {
	if snap.Resolving {
		return GuardDecision{State: GuardResolving}
	}

	if snap.Identity == nil {
		return GuardDecision{State: GuardDenied, RedirectTo: routes.SignIn}
	}

	if !Authorize(snap.Identity, allowed...) {
		return GuardDecision{State: GuardDenied, RedirectTo: routes.Home}
	}

	return GuardDecision{State: GuardAllowed}
}

// Guard re-evaluates a route's access decision every time the session
// store changes.
type Guard struct {
	store   *Store
	routes  GuardRoutes
	allowed []Role
}

func NewGuard(store *Store, routes GuardRoutes, allowed ...Role) *Guard {
	if routes.SignIn == "" {
		routes.SignIn = DefaultGuardRoutes().SignIn
	}
	if routes.Home == "" {
		routes.Home = DefaultGuardRoutes().Home
	}

	return &Guard{
		store:   store,
		routes:  routes,
		allowed: allowed,
	}
}

// Evaluate returns the decision for the store's current snapshot.
func (g *Guard) Evaluate() GuardDecision {
	return EvaluateGuard(g.store.Snapshot(), g.routes, g.allowed...)
}

// Watch invokes fn with the current decision and again on every store
// change until unsubscribed.
func (g *Guard) Watch(fn func(GuardDecision)) Unsubscribe {
	fn(g.Evaluate())
	return g.store.Subscribe(func(snap Snapshot) {
		fn(EvaluateGuard(snap, g.routes, g.allowed...))
	})
}
