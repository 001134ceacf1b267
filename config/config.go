package config

import (
	"fmt"
	"time"
)

// BaseConfig is the application configuration tree. Values load from
// config files and environment overrides through go-config.
type BaseConfig struct {
	App         App         `json:"app" koanf:"app"`
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
	Server      Server      `json:"server" koanf:"server"`
}

func (a *BaseConfig) Validate() error {
	if a.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	return nil
}

func (a *BaseConfig) GetApp() App {
	return a.App
}

func (a *BaseConfig) GetAuth() Auth {
	return a.Auth
}

func (a *BaseConfig) GetPersistence() Persistence {
	return a.Persistence
}

func (a *BaseConfig) GetServer() Server {
	return a.Server
}

type App struct {
	Name  string `json:"name" koanf:"name"`
	Env   string `json:"env" koanf:"env"`
	Debug bool   `json:"debug" koanf:"debug"`
}

func (a App) GetName() string {
	return a.Name
}

func (a App) GetEnv() string {
	return a.Env
}

func (a App) GetDebug() bool {
	return a.Debug
}

// Auth configures session tokens, cookies, and guard routes. It
// satisfies the portal configuration contract.
type Auth struct {
	SigningKey            string   `json:"signing_key" koanf:"signing_key"`
	SigningMethod         string   `json:"signing_method" koanf:"signing_method"`
	ContextKey            string   `json:"context_key" koanf:"context_key"`
	TokenExpiration       int      `json:"token_expiration" koanf:"token_expiration"`
	ExtendedTokenDuration int      `json:"extended_token_duration" koanf:"extended_token_duration"`
	TokenLookup           string   `json:"token_lookup" koanf:"token_lookup"`
	AuthScheme            string   `json:"auth_scheme" koanf:"auth_scheme"`
	Issuer                string   `json:"issuer" koanf:"issuer"`
	Audience              []string `json:"audience" koanf:"audience"`
	RejectedRouteKey      string   `json:"rejected_route_key" koanf:"rejected_route_key"`
	RejectedRouteDefault  string   `json:"rejected_route_default" koanf:"rejected_route_default"`
	SignInRoute           string   `json:"sign_in_route" koanf:"sign_in_route"`
	HomeRoute             string   `json:"home_route" koanf:"home_route"`
}

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetSigningMethod() string {
	if a.SigningMethod == "" {
		return "HS256"
	}
	return a.SigningMethod
}

func (a Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "portal_session"
	}
	return a.ContextKey
}

func (a Auth) GetTokenExpiration() int {
	if a.TokenExpiration == 0 {
		return 24
	}
	return a.TokenExpiration
}

func (a Auth) GetExtendedTokenDuration() int {
	if a.ExtendedTokenDuration == 0 {
		return 24 * 30
	}
	return a.ExtendedTokenDuration
}

func (a Auth) GetTokenLookup() string {
	if a.TokenLookup == "" {
		return "cookie:" + a.GetContextKey()
	}
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

func (a Auth) GetIssuer() string {
	if a.Issuer == "" {
		return "covercell-portal"
	}
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	if len(a.Audience) == 0 {
		return []string{"covercell:portal"}
	}
	return a.Audience
}

func (a Auth) GetRejectedRouteKey() string {
	if a.RejectedRouteKey == "" {
		return "rejected_route"
	}
	return a.RejectedRouteKey
}

func (a Auth) GetRejectedRouteDefault() string {
	if a.RejectedRouteDefault == "" {
		return "/dashboard"
	}
	return a.RejectedRouteDefault
}

func (a Auth) GetSignInRoute() string {
	if a.SignInRoute == "" {
		return "/login"
	}
	return a.SignInRoute
}

func (a Auth) GetHomeRoute() string {
	if a.HomeRoute == "" {
		return "/"
	}
	return a.HomeRoute
}

type Persistence struct {
	Debug                 bool   `json:"debug" koanf:"debug"`
	Driver                string `json:"driver" koanf:"driver"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Server                string `json:"server" koanf:"server"`
	Database              string `json:"database" koanf:"database"`
	OtelIdentifier        string `json:"otel_identifier" koanf:"otel_identifier"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file:portal.db?cache=shared&_pragma=foreign_keys(1)"
	}
	return p.DSN
}

func (p Persistence) GetServer() string {
	return p.Server
}

func (p Persistence) GetDatabase() string {
	if p.Database == "" {
		return "portal"
	}
	return p.Database
}

func (p Persistence) GetOtelIdentifier() string {
	return p.OtelIdentifier
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

type Server struct {
	Address string `json:"address" koanf:"address"`
}

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":8572"
	}
	return s.Address
}
