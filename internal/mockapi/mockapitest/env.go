// Package mockapitest starts a mock backend for tests of the client stores.
package mockapitest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"contesthub/internal/api"
	"contesthub/internal/mockapi"
)

// Password is used for every account created through the Env helpers.
const Password = "password123"

// Token is a fixed api.TokenSource.
type Token string

func (t Token) Token() string { return string(t) }

// Env is a running mock backend.
type Env struct {
	Server  *mockapi.Server
	HTTP    *httptest.Server
	BaseURL string
}

// Start serves an empty mock backend until the test ends.
func Start(t testing.TB) *Env {
	t.Helper()
	srv := mockapi.New(mockapi.Options{HashCost: bcrypt.MinCost})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		if tr, ok := http.DefaultTransport.(*http.Transport); ok {
			tr.CloseIdleConnections()
		}
	})
	return &Env{Server: srv, HTTP: ts, BaseURL: ts.URL + "/api"}
}

// Client returns an API client authenticated by tokens, which may be nil.
func (e *Env) Client(tokens api.TokenSource) *api.Client {
	c := api.New(e.BaseURL, 5*time.Second)
	c.Tokens = tokens
	return c
}

// User creates an account with Password and returns its id.
func (e *Env) User(t testing.TB, name, email, role, school string) string {
	t.Helper()
	id, err := e.Server.AddUser(mockapi.UserSeed{
		Name:     name,
		Email:    email,
		Password: Password,
		Role:     role,
		School:   school,
	})
	if err != nil {
		t.Fatalf("add user %s: %v", email, err)
	}
	return id
}

// Login returns a client authenticated as email.
func (e *Env) Login(t testing.TB, email string) *api.Client {
	t.Helper()
	resp, err := e.Client(nil).Login(context.Background(), api.LoginRequest{Email: email, Password: Password})
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return e.Client(Token(resp.Token))
}

// Competition stores a competition with the given stages and returns its id.
func (e *Env) Competition(title string, stages ...string) string {
	return e.Server.AddCompetition(api.CompetitionRecord{Title: title, Stages: stages})
}
