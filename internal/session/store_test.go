package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contesthub/internal/auth"
	"contesthub/internal/localstore"
	"contesthub/internal/logging"
	"contesthub/internal/mockapi/mockapitest"
	"contesthub/internal/model"
)

func newStore(t *testing.T) (*Store, *mockapitest.Env, localstore.Storage) {
	t.Helper()
	env := mockapitest.Start(t)
	storage := localstore.NewMemory()
	client := env.Client(nil)
	s := New(client, storage, logging.Discard())
	client.Tokens = s
	return s, env, storage
}

func TestLogin_PersistsBeforeNotifying(t *testing.T) {
	s, env, storage := newStore(t)
	aliceID := env.User(t, "Alice", "alice@r.test", "student", "Riverside")
	ctx := context.Background()

	var seen *model.Identity
	s.Subscribe(func(ctx context.Context, id *model.Identity) {
		raw, err := storage.Get(ctx, localstore.KeyUser)
		require.NoError(t, err, "storage is written before listeners run")
		assert.Contains(t, raw, aliceID)
		seen = id
	})

	res := s.Login(ctx, "alice@r.test", mockapitest.Password)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Identity)
	assert.Equal(t, aliceID, res.Identity.ID)
	assert.Equal(t, aliceID, s.Identity().ID)
	require.NotNil(t, seen)
	assert.Equal(t, aliceID, seen.ID)

	raw, err := storage.Get(ctx, localstore.KeyUser)
	require.NoError(t, err)
	var persisted model.Identity
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, aliceID, persisted.ID)

	token, err := storage.Get(ctx, localstore.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, s.Token(), token)
	assert.False(t, s.Loading())
}

func TestLogin_Failure(t *testing.T) {
	s, env, storage := newStore(t)
	env.User(t, "Alice", "alice@r.test", "student", "Riverside")

	res := s.Login(context.Background(), "alice@r.test", "wrong-password")
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid email or password", res.Message)
	assert.Nil(t, s.Identity())

	_, err := storage.Get(context.Background(), localstore.KeyToken)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestLogin_InvalidFormSkipsNetwork(t *testing.T) {
	s, _, _ := newStore(t)

	res := s.Login(context.Background(), "not-an-email", "")
	assert.False(t, res.Success)
	assert.Equal(t, "email must be a valid email", res.Errors["email"])
	assert.Equal(t, "password is required", res.Errors["password"])
}

func TestLogout_ClearsBothKeys(t *testing.T) {
	s, env, storage := newStore(t)
	env.User(t, "Alice", "alice@r.test", "student", "Riverside")
	ctx := context.Background()
	require.True(t, s.Login(ctx, "alice@r.test", mockapitest.Password).Success)

	var calls []*model.Identity
	s.Subscribe(func(_ context.Context, id *model.Identity) { calls = append(calls, id) })

	s.Logout(ctx)
	assert.Nil(t, s.Identity())
	assert.Empty(t, s.Token())
	for _, key := range []string{localstore.KeyToken, localstore.KeyUser} {
		_, err := storage.Get(ctx, key)
		assert.ErrorIs(t, err, localstore.ErrNotFound, key)
	}
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0])
}

func TestRegister_StudentIsLoggedIn(t *testing.T) {
	s, env, _ := newStore(t)
	env.Server.AddSchool("Riverside", "RIV-1")
	ctx := context.Background()

	require.True(t, s.SendOtp(ctx, "new@r.test").Success)
	code, _ := env.Server.LastOTP("new@r.test")

	res := s.Register(ctx, RegisterForm{
		Name: "Nia", Email: "new@r.test", Password: "secret1", Role: model.RoleStudent, School: "RIV-1", OTP: code,
	})
	require.True(t, res.Success, res.Message)
	require.NotNil(t, s.Identity())
	assert.Equal(t, "Nia", s.Identity().Name)
	assert.Equal(t, "Riverside", s.Identity().School)
}

func TestRegister_AdminGetsSchoolCode(t *testing.T) {
	s, env, storage := newStore(t)
	ctx := context.Background()

	require.True(t, s.SendOtp(ctx, "head@lake.test").Success)
	code, _ := env.Server.LastOTP("head@lake.test")

	res := s.Register(ctx, RegisterForm{
		Name: "Hal", Email: "head@lake.test", Password: "secret1", Role: model.RoleAdmin, School: "Lake School", OTP: code,
	})
	require.True(t, res.Success, res.Message)
	assert.NotEmpty(t, res.SchoolCode)
	assert.Nil(t, s.Identity(), "admins log in after founding a school")

	_, err := storage.Get(ctx, localstore.KeyToken)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestRegister_ServerFieldErrors(t *testing.T) {
	s, env, _ := newStore(t)
	env.User(t, "Alice", "alice@r.test", "student", "Riverside")

	res := s.SendOtp(context.Background(), "alice@r.test")
	assert.False(t, res.Success)
	assert.Equal(t, "Validation failed", res.Message)
	assert.Equal(t, "Email is already registered", res.Errors["email"])
}

func TestPasswordReset(t *testing.T) {
	s, env, _ := newStore(t)
	env.User(t, "Alice", "alice@r.test", "student", "Riverside")
	ctx := context.Background()

	require.True(t, s.ForgotPassword(ctx, "alice@r.test").Success)
	code, _ := env.Server.LastOTP("alice@r.test")

	res := s.ResetUserPassword(ctx, "alice@r.test", code, "brand-new")
	require.True(t, res.Success, res.Message)
	assert.Nil(t, s.Identity())

	assert.False(t, s.Login(ctx, "alice@r.test", mockapitest.Password).Success)
	assert.True(t, s.Login(ctx, "alice@r.test", "brand-new").Success)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	id := model.Identity{ID: "u1", Name: "Alice", Role: model.RoleStudent}
	raw, _ := json.Marshal(id)

	live, err := auth.Issue("u1", "student", "", "contesthub", "k", time.Hour)
	require.NoError(t, err)
	expired, err := auth.Issue("u1", "student", "", "contesthub", "k", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		user    string
		restore bool
	}{
		{name: "valid", token: live.Value, user: string(raw), restore: true},
		{name: "opaque token", token: "opaque", user: string(raw), restore: true},
		{name: "expired token", token: expired.Value, user: string(raw)},
		{name: "missing user", token: live.Value},
		{name: "missing token", user: string(raw)},
		{name: "garbage user", token: live.Value, user: "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := localstore.NewMemory()
			if tt.token != "" {
				require.NoError(t, storage.Set(ctx, localstore.KeyToken, tt.token))
			}
			if tt.user != "" {
				require.NoError(t, storage.Set(ctx, localstore.KeyUser, tt.user))
			}

			s := New(nil, storage, logging.Discard())
			var notified bool
			s.Subscribe(func(context.Context, *model.Identity) { notified = true })
			require.NoError(t, s.Restore(ctx))

			if tt.restore {
				require.NotNil(t, s.Identity())
				assert.Equal(t, "u1", s.Identity().ID)
				assert.Equal(t, tt.token, s.Token())
				assert.True(t, notified)
				return
			}
			assert.Nil(t, s.Identity())
			assert.False(t, notified)
			for _, key := range []string{localstore.KeyToken, localstore.KeyUser} {
				_, err := storage.Get(ctx, key)
				assert.ErrorIs(t, err, localstore.ErrNotFound, key)
			}
		})
	}
}

func TestRestore_CorruptFileThenLogin(t *testing.T) {
	env := mockapitest.Start(t)
	aliceID := env.User(t, "Alice", "alice@r.test", "student", "Riverside")
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	storage := localstore.NewFile(path)

	client := env.Client(nil)
	s := New(client, storage, logging.Discard())
	client.Tokens = s

	require.NoError(t, s.Restore(ctx))
	assert.Nil(t, s.Identity())
	_, err := storage.Get(ctx, localstore.KeyToken)
	assert.ErrorIs(t, err, localstore.ErrNotFound)

	res := s.Login(ctx, "alice@r.test", mockapitest.Password)
	require.True(t, res.Success, res.Message)

	reopened := New(nil, localstore.NewFile(path), logging.Discard())
	require.NoError(t, reopened.Restore(ctx))
	require.NotNil(t, reopened.Identity())
	assert.Equal(t, aliceID, reopened.Identity().ID)
}
