package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestClient_BearerOnlyOutsideAuth(t *testing.T) {
	seen := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(AuthResponse{Token: "t1", User: &UserRecord{ID: "u1"}})
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.Tokens = staticToken("secret")

	_, err := c.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	_, err = c.ListCompetitions(context.Background())
	require.NoError(t, err)

	assert.Empty(t, seen["/auth/login"])
	assert.Equal(t, "Bearer secret", seen["/competitions"])
}

func TestClient_DecodesValidationErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Validation failed","errors":[
			{"path":"email","message":"Email is taken"},
			{"path":"email","message":"second"},
			{"path":"password","message":"Too short"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Register(context.Background(), RegisterRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.Message)
	fields := apiErr.FieldErrors()
	assert.Equal(t, "Email is taken", fields["email"])
	assert.Equal(t, "Too short", fields["password"])
	assert.Equal(t, "Validation failed", Message(err, "fallback"))
	assert.True(t, IsStatus(err, http.StatusBadRequest))
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).ListTeams(context.Background())
	require.Error(t, err)
	assert.Equal(t, "upstream down", Message(err, "fallback"))
}

func TestClient_RouteParamsAreEscaped(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"_id":"r1","team":"t 1","status":"approved"}`))
	}))
	defer srv.Close()

	rec, err := New(srv.URL, time.Second).ApproveJoinRequest(context.Background(), "t 1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "/teams/t%201/requests/r1/approve", gotPath)
	assert.Equal(t, "approved", rec.Status)
}

func TestClient_EmptyRouteParamFailsFast(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second)
	_, err := c.ListJoinRequests(context.Background(), "")
	require.Error(t, err)
}

func TestClient_Metrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/teams/t1/messages" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := New(srv.URL, time.Second)
	c.Metrics = NewMetrics(reg)

	_, _ = c.ListTeams(context.Background())
	_, _ = c.ListTeams(context.Background())
	_, _ = c.ListTeamMessages(context.Background(), "t1")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Metrics.requests.WithLabelValues("/teams", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics.requests.WithLabelValues("/teams/:id/messages", "GET", "404")))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond).ListCompetitions(context.Background())
	require.Error(t, err)
}
