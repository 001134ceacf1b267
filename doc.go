// Package portal is the account and enrollment core of the CoverCell
// device protection product: registration, login, logout, a process
// session store, role based route guarding, and protection plan
// enrollment, backed by an external identity provider and a profile
// store consumed strictly through their contracts.
//
// Session resolution:
//   - Store subscribes to the identity service's session feed. A session
//     without a matching profile record resolves to an absent identity
//     (fail closed) and surfaces a "profile missing" notification.
//   - Every asynchronous resolution carries a monotonically increasing
//     operation token; a superseded resolution is discarded on
//     completion, so a slow lookup can never overwrite a newer login or
//     logout.
//
// Authorization:
//   - Role is a closed enum (admin, shop_owner, employee, customer).
//     Authorize is a pure membership test; unknown roles are denied
//     everywhere. The HTTP RouteGuard resolves token, session, and
//     profile per request and feeds the result through the same
//     EvaluateGuard state machine used by embedding clients.
//
// Providers:
//   - provider/local implements IdentityService and TokenSource over the
//     accounts repository with bcrypt credentials, login throttling, and
//     HS256 session tokens.
//   - provider/gcip validates externally issued identity tokens against
//     a hosted JWKS endpoint.
package portal
