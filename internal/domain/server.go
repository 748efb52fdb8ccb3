package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Origin tags how a server definition entered the registry.
type Origin string

const (
	// OriginPredefined marks entries shipped with the software. They are
	// replaced wholesale on every migration and cannot be deleted or renamed
	// through the user-facing registry operations.
	OriginPredefined Origin = "predefined"

	// OriginUserDefined marks entries created by the operator.
	OriginUserDefined Origin = "user_defined"
)

// ServiceAccess holds the two parameters defining one service endpoint:
// its base URL and the dialect it speaks.
type ServiceAccess struct {
	BaseURL  string `json:"baseUrl"`
	Protocol string `json:"protocol"`
}

// ServerDefinition is one logical resto server: an immutable identity plus
// the operational state tracked for it between invocations.
type ServerDefinition struct {
	Name           string         `json:"name"`
	Origin         Origin         `json:"origin"`
	Application    ServiceAccess  `json:"application"`
	Authentication *ServiceAccess `json:"authentication,omitempty"`
	Status         Status         `json:"status"`
	Cache          ServerCache    `json:"cache,omitempty"`
}

// CanonicalName normalizes a server name to its registry identity.
// Names are case-insensitive; the lowercase form is the canonical one.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeServiceAccess validates an access descriptor syntactically and
// returns it with the base URL in canonical form (trailing slash guaranteed).
// No network probing is performed.
func NormalizeServiceAccess(kind ServiceKind, access ServiceAccess) (ServiceAccess, error) {
	op := fmt.Sprintf("normalize %s access", kind)

	trimmed := strings.TrimSpace(access.BaseURL)
	if trimmed == "" {
		return ServiceAccess{}, E(CodeInvalidDefinition, op, "base URL is required", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ServiceAccess{}, E(CodeInvalidDefinition, op, fmt.Sprintf("invalid base URL %q", trimmed), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		msg := fmt.Sprintf("unsupported URL scheme %q (must be http or https)", parsed.Scheme)
		return ServiceAccess{}, E(CodeInvalidDefinition, op, msg, nil)
	}
	if parsed.Host == "" {
		return ServiceAccess{}, E(CodeInvalidDefinition, op, fmt.Sprintf("base URL %q has no host", trimmed), nil)
	}
	if !strings.HasSuffix(trimmed, "/") {
		trimmed += "/"
	}

	protocol := strings.TrimSpace(access.Protocol)
	if protocol == "" {
		return ServiceAccess{}, E(CodeInvalidDefinition, op, "protocol name is required", nil)
	}
	if !KnownProtocol(kind, protocol) {
		msg := fmt.Sprintf("unknown %s protocol %q (supported: %s)",
			kind, protocol, strings.Join(SupportedProtocols(kind), ", "))
		return ServiceAccess{}, E(CodeInvalidDefinition, op, msg, nil)
	}

	return ServiceAccess{BaseURL: trimmed, Protocol: protocol}, nil
}

// Normalize validates the whole definition and returns it in canonical form.
// Status and cache are carried over untouched.
func (d ServerDefinition) Normalize() (ServerDefinition, error) {
	name := CanonicalName(d.Name)
	if name == "" {
		return ServerDefinition{}, E(CodeInvalidDefinition, "normalize definition", "server name is required", nil)
	}
	if d.Origin != OriginPredefined && d.Origin != OriginUserDefined {
		msg := fmt.Sprintf("server %q has unknown origin %q", name, d.Origin)
		return ServerDefinition{}, E(CodeInvalidDefinition, "normalize definition", msg, nil)
	}

	application, err := NormalizeServiceAccess(ServiceApplication, d.Application)
	if err != nil {
		return ServerDefinition{}, err
	}

	var authentication *ServiceAccess
	if d.Authentication != nil {
		auth, err := NormalizeServiceAccess(ServiceAuthentication, *d.Authentication)
		if err != nil {
			return ServerDefinition{}, err
		}
		authentication = &auth
	}

	status := d.Status
	if status == "" {
		status = StatusNeverReached
	}
	if !status.Valid() {
		msg := fmt.Sprintf("server %q has unknown status %q", name, status)
		return ServerDefinition{}, E(CodeInvalidDefinition, "normalize definition", msg, nil)
	}

	return ServerDefinition{
		Name:           name,
		Origin:         d.Origin,
		Application:    application,
		Authentication: authentication,
		Status:         status,
		Cache:          d.Cache.Clone(),
	}, nil
}

// Clone returns a deep copy, safe to hand to callers.
func (d ServerDefinition) Clone() ServerDefinition {
	out := d
	if d.Authentication != nil {
		auth := *d.Authentication
		out.Authentication = &auth
	}
	out.Cache = d.Cache.Clone()
	return out
}
