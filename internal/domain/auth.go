package domain

import "strings"

// AuthType is the authentication scheme an API declares.
type AuthType string

const (
	AuthNone    AuthType = "none"
	AuthBasic   AuthType = "basic"
	AuthBearer  AuthType = "bearer"
	AuthAPIKey  AuthType = "api_key"
	AuthOAuth   AuthType = "oauth"
	AuthSession AuthType = "session"
)

// ParseAuthType maps scheme labels used by the various input formats onto
// AuthType. Unknown labels map to AuthNone.
func ParseAuthType(label string) AuthType {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.NewReplacer("_", "", "-", "", " ", "").Replace(l)
	switch l {
	case "basic", "basicauth", "digest":
		return AuthBasic
	case "bearer", "jwt", "token", "bearertoken", "http":
		return AuthBearer
	case "apikey", "key", "apitoken":
		return AuthAPIKey
	case "oauth", "oauth1", "oauth2", "openidconnect", "oidc":
		return AuthOAuth
	case "session", "cookie", "sessioncookie":
		return AuthSession
	}
	return AuthNone
}

// AuthInfo is the authentication requirement of an API surface.
type AuthInfo struct {
	Type       AuthType          `json:"type" yaml:"type"`
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// IsZero reports whether the info carries no scheme.
func (a *AuthInfo) IsZero() bool {
	return a == nil || a.Type == "" || a.Type == AuthNone
}
