package domain

// ServiceKind distinguishes the two service endpoints a resto server exposes.
type ServiceKind string

const (
	ServiceApplication    ServiceKind = "application"
	ServiceAuthentication ServiceKind = "authentication"
)

// Protocol names are the request/response dialects a service endpoint can speak.
// The application dialects differ only in a few routes and response layouts; the
// authentication dialects differ in how a token is obtained.
const (
	ProtocolDotcloud     = "dotcloud"
	ProtocolPepsVersion  = "peps_version"
	ProtocolTheiaVersion = "theia_version"

	ProtocolAuthDefault     = "default"
	ProtocolAuthSSODotcloud = "sso_dotcloud"
	ProtocolAuthSSOTheia    = "sso_theia"
)

var applicationProtocols = map[string]struct{}{
	ProtocolDotcloud:     {},
	ProtocolPepsVersion:  {},
	ProtocolTheiaVersion: {},
}

var authenticationProtocols = map[string]struct{}{
	ProtocolAuthDefault:     {},
	ProtocolAuthSSODotcloud: {},
	ProtocolAuthSSOTheia:    {},
}

// KnownProtocol reports whether name is a supported dialect for the given kind.
func KnownProtocol(kind ServiceKind, name string) bool {
	switch kind {
	case ServiceApplication:
		_, ok := applicationProtocols[name]
		return ok
	case ServiceAuthentication:
		_, ok := authenticationProtocols[name]
		return ok
	default:
		return false
	}
}

// SupportedProtocols returns the dialect names accepted for a service kind,
// in a fixed display order.
func SupportedProtocols(kind ServiceKind) []string {
	switch kind {
	case ServiceApplication:
		return []string{ProtocolDotcloud, ProtocolPepsVersion, ProtocolTheiaVersion}
	case ServiceAuthentication:
		return []string{ProtocolAuthDefault, ProtocolAuthSSODotcloud, ProtocolAuthSSOTheia}
	default:
		return nil
	}
}
