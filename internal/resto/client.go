// Package resto is the transport boundary: it performs the live HTTP calls
// against a server's application and authentication endpoints and reports a
// protocol outcome for every completed call, feeding the registry's status
// tracking.
package resto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"restoctl/internal/domain"
)

// OutcomeReporter receives exactly one outcome per completed logical call.
type OutcomeReporter interface {
	ReportOutcome(server string, outcome domain.Outcome) (domain.Status, error)
}

type Client struct {
	// HTTP is the underlying client. A default with a 30s timeout is used
	// when nil.
	HTTP *http.Client

	// MaxTries bounds the attempts per call, initial attempt included.
	MaxTries uint

	reporter OutcomeReporter
	logger   *zap.Logger
}

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxTries = 3
)

func NewClient(reporter OutcomeReporter, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		reporter: reporter,
		logger:   logger.Named("resto"),
	}
}

// Describe fetches the server's describe document.
func (c *Client) Describe(ctx context.Context, srv domain.ServerDefinition) (json.RawMessage, error) {
	route, err := describeRoute(srv.Application.Protocol)
	if err != nil {
		return nil, err
	}
	return c.getJSON(ctx, srv.Name, srv.Application.BaseURL+route)
}

// Collections fetches the server's collection list document.
func (c *Client) Collections(ctx context.Context, srv domain.ServerDefinition) (json.RawMessage, error) {
	route, err := collectionsRoute(srv.Application.Protocol)
	if err != nil {
		return nil, err
	}
	return c.getJSON(ctx, srv.Name, srv.Application.BaseURL+route)
}

// Authenticate obtains a token from the server's authentication endpoint.
func (c *Client) Authenticate(ctx context.Context, srv domain.ServerDefinition, username, password string) (string, error) {
	if srv.Authentication == nil {
		msg := fmt.Sprintf("server %q has no authentication service", srv.Name)
		return "", domain.E(domain.CodeInvalidDefinition, "authenticate", msg, nil)
	}

	protocol := srv.Authentication.Protocol
	route, err := tokenRoute(protocol)
	if err != nil {
		return "", err
	}
	endpoint := srv.Authentication.BaseURL + route

	var body []byte
	switch protocol {
	case domain.ProtocolAuthDefault:
		body, err = c.do(ctx, srv.Name, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.SetBasicAuth(username, password)
			return req, nil
		}, protocol != domain.ProtocolAuthSSOTheia)
	default:
		form := url.Values{"ident": {username}, "password": {password}}
		body, err = c.do(ctx, srv.Name, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req, nil
		}, protocol != domain.ProtocolAuthSSOTheia)
	}
	if err != nil {
		return "", err
	}

	// sso_theia answers with the bare token; the other dialects wrap it.
	if protocol == domain.ProtocolAuthSSOTheia {
		return strings.TrimSpace(string(body)), nil
	}
	token := gjson.GetBytes(body, "token").Str
	if token == "" {
		msg := fmt.Sprintf("server %q answered without a token", srv.Name)
		return "", domain.E(domain.CodeUnavailable, "authenticate", msg, nil)
	}
	return token, nil
}

func (c *Client) getJSON(ctx context.Context, server, endpoint string) (json.RawMessage, error) {
	return c.do(ctx, server, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, true)
}

// do performs one logical call with bounded retries and reports its outcome.
// An answer whose body is structurally valid counts as a protocol success
// even when it carries an applicative error status.
func (c *Client) do(ctx context.Context, server string, build func() (*http.Request, error), wantJSON bool) ([]byte, error) {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	maxTries := c.MaxTries
	if maxTries == 0 {
		maxTries = defaultMaxTries
	}

	type answer struct {
		status int
		body   []byte
	}

	operation := func() (answer, error) {
		req, err := build()
		if err != nil {
			return answer{}, backoff.Permanent(err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return answer{}, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return answer{}, err
		}
		return answer{status: resp.StatusCode, body: body}, nil
	}

	got, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Debug("request failed, retrying",
				zap.String("server", server),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		c.report(server, domain.ProtocolFailure)
		return nil, domain.E(domain.CodeUnavailable, "request "+server, "", err)
	}

	if wantJSON && !gjson.ValidBytes(got.body) {
		c.report(server, domain.ProtocolFailure)
		msg := fmt.Sprintf("server %q answered with a malformed document", server)
		return nil, domain.E(domain.CodeUnavailable, "request "+server, msg, nil)
	}

	c.report(server, domain.ProtocolSuccess)
	if got.status >= http.StatusBadRequest {
		msg := fmt.Sprintf("server %q answered HTTP %d", server, got.status)
		return got.body, domain.E(domain.CodeUnavailable, "request "+server, msg, nil)
	}
	return got.body, nil
}

func (c *Client) report(server string, outcome domain.Outcome) {
	if c.reporter == nil {
		return
	}
	if _, err := c.reporter.ReportOutcome(server, outcome); err != nil {
		c.logger.Warn("outcome not recorded", zap.String("server", server), zap.Error(err))
	}
}
