package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"contesthub/internal/config"
	"contesthub/internal/localstore"
	"contesthub/internal/logging"
	"contesthub/internal/mockapi/mockapitest"
	"contesthub/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(baseURL string) config.App {
	cfg := config.Defaults()
	cfg.APIBaseURL = baseURL
	cfg.RequestTimeout = 5 * time.Second
	cfg.SessionBackend = "memory"
	return cfg
}

func TestLoginRefreshesStores(t *testing.T) {
	env := mockapitest.Start(t)
	env.User(t, "Alice", "alice@r.test", "student", "Riverside")
	fair := env.Competition("Science Fair", "Registration")
	ctx := context.Background()

	storage := localstore.NewMemory()
	a, err := New(testConfig(env.BaseURL), Options{
		Logger:     logging.Discard(),
		Storage:    storage,
		Registerer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Start(ctx))
	assert.Nil(t, a.Session.Identity())

	res := a.Session.Login(ctx, "alice@r.test", mockapitest.Password)
	require.True(t, res.Success, res.Message)

	_, ok := a.Domain.Competition(fair)
	assert.True(t, ok, "competitions fetched on login")

	_, err = a.Conversations.SendMessage("hello", "")
	require.NoError(t, err)

	// A second process sharing the storage picks the login up on Start.
	b, err := New(testConfig(env.BaseURL), Options{Logger: logging.Discard(), Storage: storage})
	require.NoError(t, err)
	require.NoError(t, b.Start(ctx))
	require.NotNil(t, b.Session.Identity())
	assert.Equal(t, model.RoleStudent, b.Session.Identity().Role)
	assert.Len(t, b.Domain.Competitions(), 1)

	b.Session.Logout(ctx)
	assert.Nil(t, b.Session.Identity())
	assert.Empty(t, b.Domain.Submissions())
	assert.Empty(t, b.Teams.Teams())
}

func TestRefreshWithoutIdentity(t *testing.T) {
	env := mockapitest.Start(t)
	a, err := New(testConfig(env.BaseURL), Options{Logger: logging.Discard()})
	require.NoError(t, err)

	a.Refresh(context.Background())
	assert.Empty(t, a.Teams.Teams())
	assert.Empty(t, a.Domain.Submissions())
}

func TestUnknownSessionBackend(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.SessionBackend = "floppy"
	_, err := New(cfg, Options{Logger: logging.Discard()})
	assert.ErrorContains(t, err, "floppy")
}
