package resto

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"restoctl/internal/domain"
)

type recordedOutcome struct {
	server  string
	outcome domain.Outcome
}

type fakeReporter struct {
	outcomes []recordedOutcome
}

func (f *fakeReporter) ReportOutcome(server string, outcome domain.Outcome) (domain.Status, error) {
	f.outcomes = append(f.outcomes, recordedOutcome{server: server, outcome: outcome})
	return domain.StatusRunning, nil
}

func serverFor(t *testing.T, baseURL string) domain.ServerDefinition {
	t.Helper()
	def := domain.ServerDefinition{
		Name:           "test",
		Origin:         domain.OriginUserDefined,
		Application:    domain.ServiceAccess{BaseURL: baseURL, Protocol: domain.ProtocolTheiaVersion},
		Authentication: &domain.ServiceAccess{BaseURL: baseURL, Protocol: domain.ProtocolAuthSSODotcloud},
	}
	normalized, err := def.Normalize()
	require.NoError(t, err)
	return normalized
}

func TestClient_CollectionsSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"collections":[{"name":"S2ST"},{"name":"KALCNES"}]}`))
	}))
	defer ts.Close()

	reporter := &fakeReporter{}
	client := NewClient(reporter, zap.NewNop())
	client.MaxTries = 1

	doc, err := client.Collections(context.Background(), serverFor(t, ts.URL))
	require.NoError(t, err)
	require.Equal(t, []string{"S2ST", "KALCNES"}, CollectionNames(doc))

	require.Len(t, reporter.outcomes, 1)
	require.Equal(t, domain.ProtocolSuccess, reporter.outcomes[0].outcome)
	require.Equal(t, "test", reporter.outcomes[0].server)
}

func TestClient_DescribeUsesDialectRoute(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"synthesis":{"name":"Test catalog"}}`))
	}))
	defer ts.Close()

	client := NewClient(&fakeReporter{}, zap.NewNop())
	client.MaxTries = 1

	doc, err := client.Describe(context.Background(), serverFor(t, ts.URL))
	require.NoError(t, err)
	require.Equal(t, "/api/collections/describe.json", gotPath)
	require.Equal(t, "Test catalog", ServerDescription(doc))
}

func TestClient_ApplicativeErrorIsProtocolSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ErrorMessage":"unknown collection"}`))
	}))
	defer ts.Close()

	reporter := &fakeReporter{}
	client := NewClient(reporter, zap.NewNop())
	client.MaxTries = 1

	_, err := client.Collections(context.Background(), serverFor(t, ts.URL))
	require.Error(t, err)

	// The server answered with valid JSON: protocol-wise that is a success.
	require.Len(t, reporter.outcomes, 1)
	require.Equal(t, domain.ProtocolSuccess, reporter.outcomes[0].outcome)
}

func TestClient_MalformedBodyIsProtocolFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer ts.Close()

	reporter := &fakeReporter{}
	client := NewClient(reporter, zap.NewNop())
	client.MaxTries = 1

	_, err := client.Collections(context.Background(), serverFor(t, ts.URL))
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeUnavailable), "got %v", err)

	require.Len(t, reporter.outcomes, 1)
	require.Equal(t, domain.ProtocolFailure, reporter.outcomes[0].outcome)
}

func TestClient_TransportErrorIsProtocolFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	ts.Close() // nothing listens anymore

	reporter := &fakeReporter{}
	client := NewClient(reporter, zap.NewNop())
	client.MaxTries = 2

	_, err := client.Collections(context.Background(), serverFor(t, ts.URL))
	require.Error(t, err)

	// Retries happen inside one logical call; exactly one outcome is reported.
	require.Len(t, reporter.outcomes, 1)
	require.Equal(t, domain.ProtocolFailure, reporter.outcomes[0].outcome)
}

func TestClient_AuthenticateSSODotcloud(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "jane", r.PostForm.Get("ident"))
		require.Equal(t, "secret", r.PostForm.Get("password"))
		_, _ = w.Write([]byte(`{"token":"abc123"}`))
	}))
	defer ts.Close()

	client := NewClient(&fakeReporter{}, zap.NewNop())
	client.MaxTries = 1

	token, err := client.Authenticate(context.Background(), serverFor(t, ts.URL), "jane", "secret")
	require.NoError(t, err)
	require.Equal(t, "abc123", token)
}

func TestClient_AuthenticateSSOTheiaPlainToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("raw-token-value\n"))
	}))
	defer ts.Close()

	srv := serverFor(t, ts.URL)
	srv.Authentication.Protocol = domain.ProtocolAuthSSOTheia

	client := NewClient(&fakeReporter{}, zap.NewNop())
	client.MaxTries = 1

	token, err := client.Authenticate(context.Background(), srv, "jane", "secret")
	require.NoError(t, err)
	require.Equal(t, "raw-token-value", token)
}

func TestClient_AuthenticateDefaultUsesBasicAuth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/connect", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "jane", user)
		require.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"token":"tk"}`))
	}))
	defer ts.Close()

	srv := serverFor(t, ts.URL)
	srv.Authentication.Protocol = domain.ProtocolAuthDefault

	client := NewClient(&fakeReporter{}, zap.NewNop())
	client.MaxTries = 1

	token, err := client.Authenticate(context.Background(), srv, "jane", "secret")
	require.NoError(t, err)
	require.Equal(t, "tk", token)
}

func TestClient_AuthenticateWithoutAuthService(t *testing.T) {
	srv := serverFor(t, "https://resto.example.com/")
	srv.Authentication = nil

	client := NewClient(&fakeReporter{}, zap.NewNop())
	_, err := client.Authenticate(context.Background(), srv, "jane", "secret")
	require.True(t, domain.IsCode(err, domain.CodeInvalidDefinition), "got %v", err)
}

func TestCollectionNames_TopLevelArray(t *testing.T) {
	names := CollectionNames([]byte(`[{"name":"A"},{"name":"B"}]`))
	require.Equal(t, []string{"A", "B"}, names)

	require.Nil(t, CollectionNames([]byte(`{"unexpected":true}`)))
}
