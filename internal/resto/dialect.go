package resto

import (
	"fmt"

	"github.com/tidwall/gjson"

	"restoctl/internal/domain"
)

// applicationRoutes are the relative routes of the application service, per
// dialect. The current dialects happen to agree on these routes; they differ
// in response layout and in the download/search surfaces not covered here.
var applicationRoutes = map[string]struct {
	describe    string
	collections string
}{
	domain.ProtocolDotcloud:     {describe: "api/collections/describe.json", collections: "collections"},
	domain.ProtocolPepsVersion:  {describe: "api/collections/describe.json", collections: "collections"},
	domain.ProtocolTheiaVersion: {describe: "api/collections/describe.json", collections: "collections"},
}

func describeRoute(protocol string) (string, error) {
	routes, ok := applicationRoutes[protocol]
	if !ok {
		return "", fmt.Errorf("no describe route for protocol %q", protocol)
	}
	return routes.describe, nil
}

func collectionsRoute(protocol string) (string, error) {
	routes, ok := applicationRoutes[protocol]
	if !ok {
		return "", fmt.Errorf("no collections route for protocol %q", protocol)
	}
	return routes.collections, nil
}

// tokenRoute returns the relative route of the token request. The SSO
// dialects post to the authentication base URL itself.
func tokenRoute(protocol string) (string, error) {
	switch protocol {
	case domain.ProtocolAuthDefault:
		return "api/users/connect", nil
	case domain.ProtocolAuthSSODotcloud, domain.ProtocolAuthSSOTheia:
		return "", nil
	default:
		return "", fmt.Errorf("no token route for protocol %q", protocol)
	}
}

// CollectionNames extracts the collection names from a collections or
// describe document, tolerating the layout differences between dialects.
func CollectionNames(doc []byte) []string {
	result := gjson.GetBytes(doc, "collections.#.name")
	if !result.Exists() {
		result = gjson.GetBytes(doc, "#.name")
	}
	var names []string
	for _, name := range result.Array() {
		if name.Str != "" {
			names = append(names, name.Str)
		}
	}
	return names
}

// ServerDescription extracts the human-readable description of a server from
// its describe document, if one is present.
func ServerDescription(doc []byte) string {
	for _, path := range []string{"synthesis.name", "name", "title"} {
		if result := gjson.GetBytes(doc, path); result.Str != "" {
			return result.Str
		}
	}
	return ""
}
