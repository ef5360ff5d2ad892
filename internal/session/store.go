// Package session owns the logged-in identity: it authenticates against the
// API, persists the token and identity together, and tells subscribers when
// the identity changes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"contesthub/internal/api"
	"contesthub/internal/auth"
	"contesthub/internal/localstore"
	"contesthub/internal/model"
	"contesthub/internal/validation"
)

// Backend is the subset of the REST client the session needs.
type Backend interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	SendOTP(ctx context.Context, email string) (*api.AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) (*api.AuthResponse, error)
	ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.AuthResponse, error)
}

// Listener is called after the identity changed and the change was persisted.
// A nil identity means logged out.
type Listener func(ctx context.Context, id *model.Identity)

// Result is what every credential operation resolves to. It never carries a
// Go error: failures are described by Message and, for form problems, Errors.
type Result struct {
	Success    bool
	Message    string
	Identity   *model.Identity
	SchoolCode string
	Errors     validation.FieldErrors
}

// Store is the session store.
type Store struct {
	backend Backend
	storage localstore.Storage
	log     *slog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	identity  *model.Identity
	token     string
	listeners []Listener

	inflight atomic.Int32
}

// New creates a store with no identity. Call Restore to resume a persisted session.
func New(backend Backend, storage localstore.Storage, log *slog.Logger) *Store {
	return &Store{
		backend: backend,
		storage: storage,
		log:     log.With("store", "session"),
		now:     time.Now,
	}
}

// Subscribe registers l for identity changes. Listeners run synchronously,
// in registration order, on the goroutine that changed the identity.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Identity returns a copy of the current identity, or nil.
func (s *Store) Identity() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Token returns the bearer token, or "" when logged out. It makes Store an api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Loading reports whether any network call is in flight.
func (s *Store) Loading() bool {
	return s.inflight.Load() > 0
}

func (s *Store) begin() func() {
	s.inflight.Add(1)
	return func() { s.inflight.Add(-1) }
}

// Restore reads the persisted token and identity. Both must be present and
// valid; otherwise both keys are cleared and the store stays logged out.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.storage.Get(ctx, localstore.KeyToken)
	rawUser, uerr := s.storage.Get(ctx, localstore.KeyUser)
	if errors.Is(err, localstore.ErrCorrupt) || errors.Is(uerr, localstore.ErrCorrupt) {
		s.log.Warn("unreadable persisted session, clearing", "err", errors.Join(err, uerr))
		return s.clear(ctx)
	}
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return err
	}
	if uerr != nil && !errors.Is(uerr, localstore.ErrNotFound) {
		return uerr
	}
	if token == "" && rawUser == "" {
		return nil
	}

	var id model.Identity
	switch {
	case token == "" || rawUser == "":
		s.log.Warn("incomplete persisted session, clearing")
		return s.clear(ctx)
	case json.Unmarshal([]byte(rawUser), &id) != nil || id.ID == "":
		s.log.Warn("unreadable persisted identity, clearing")
		return s.clear(ctx)
	}
	if exp, ok := auth.ExpiresAt(token); ok && !exp.After(s.now()) {
		s.log.Info("persisted session expired", "expired_at", exp)
		return s.clear(ctx)
	}

	s.set(ctx, &id, token)
	s.log.Info("session restored", "user", id.ID, "role", id.Role)
	return nil
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates and persists the session.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	form := loginForm{Email: email, Password: password}
	if err := validation.Struct(form); err != nil {
		return invalid(err)
	}

	done := s.begin()
	defer done()

	resp, err := s.backend.Login(ctx, api.LoginRequest{Email: form.Email, Password: form.Password})
	if err != nil {
		return s.failure("login", err, "Login failed")
	}
	if resp.Token == "" || resp.User == nil {
		s.log.Error("login response without token or user")
		return Result{Message: "Login failed"}
	}

	id := api.MapIdentity(*resp.User)
	if err := s.persist(ctx, &id, resp.Token); err != nil {
		s.log.Error("persist session failed", "err", err)
		return Result{Message: "Login failed"}
	}
	s.log.Info("logged in", "user", id.ID, "role", id.Role)
	return Result{Success: true, Message: orDefault(resp.Message, "Login successful"), Identity: &id}
}

type emailForm struct {
	Email string `json:"email" validate:"required,email"`
}

// SendOtp asks for a registration code to be mailed to email.
func (s *Store) SendOtp(ctx context.Context, email string) Result {
	if err := validation.Struct(emailForm{Email: email}); err != nil {
		return invalid(err)
	}
	done := s.begin()
	defer done()

	resp, err := s.backend.SendOTP(ctx, email)
	if err != nil {
		return s.failure("send otp", err, "Failed to send verification code")
	}
	return Result{Success: true, Message: orDefault(resp.Message, "Verification code sent")}
}

// RegisterForm is the registration wizard's data.
type RegisterForm struct {
	Name     string     `json:"name" validate:"required,min=2,max=80"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"required,oneof=student admin"`
	School   string     `json:"school" validate:"required"`
	OTP      string     `json:"otp" validate:"required,len=6,numeric"`
}

// Register creates an account. A student is logged in immediately; an admin
// founding a new school gets the school code back and must log in afterwards.
func (s *Store) Register(ctx context.Context, form RegisterForm) Result {
	if err := validation.Struct(form); err != nil {
		return invalid(err)
	}
	done := s.begin()
	defer done()

	resp, err := s.backend.Register(ctx, api.RegisterRequest{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Role:     string(form.Role),
		School:   form.School,
		OTP:      form.OTP,
	})
	if err != nil {
		return s.failure("register", err, "Registration failed")
	}

	res := Result{Success: true, Message: orDefault(resp.Message, "Registration successful"), SchoolCode: resp.SchoolCode}
	if resp.User == nil {
		return res
	}
	id := api.MapIdentity(*resp.User)
	res.Identity = &id

	if id.Role == model.RoleStudent && resp.Token != "" {
		if err := s.persist(ctx, &id, resp.Token); err != nil {
			s.log.Error("persist session failed", "err", err)
			return Result{Message: "Registration failed"}
		}
		s.log.Info("registered and logged in", "user", id.ID)
	}
	return res
}

// ForgotPassword asks for a reset code to be mailed to email.
func (s *Store) ForgotPassword(ctx context.Context, email string) Result {
	if err := validation.Struct(emailForm{Email: email}); err != nil {
		return invalid(err)
	}
	done := s.begin()
	defer done()

	resp, err := s.backend.ForgotPassword(ctx, email)
	if err != nil {
		return s.failure("forgot password", err, "Failed to send reset code")
	}
	return Result{Success: true, Message: orDefault(resp.Message, "Reset code sent")}
}

type resetForm struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// ResetUserPassword sets a new password. It does not log the user in.
func (s *Store) ResetUserPassword(ctx context.Context, email, otp, newPassword string) Result {
	form := resetForm{Email: email, OTP: otp, NewPassword: newPassword}
	if err := validation.Struct(form); err != nil {
		return invalid(err)
	}
	done := s.begin()
	defer done()

	resp, err := s.backend.ResetPassword(ctx, api.ResetPasswordRequest(form))
	if err != nil {
		return s.failure("reset password", err, "Password reset failed")
	}
	return Result{Success: true, Message: orDefault(resp.Message, "Password reset successful")}
}

// Logout clears the persisted session and the identity. Storage errors are
// logged; the in-memory identity is cleared regardless.
func (s *Store) Logout(ctx context.Context) {
	if err := s.clear(ctx); err != nil {
		s.log.Error("clear persisted session failed", "err", err)
	}
	s.log.Info("logged out")
}

// persist writes storage before memory so a restart mid-session resumes.
func (s *Store) persist(ctx context.Context, id *model.Identity, token string) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, localstore.KeyToken, token); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, localstore.KeyUser, string(raw)); err != nil {
		_ = s.storage.Delete(ctx, localstore.KeyToken)
		return err
	}
	s.set(ctx, id, token)
	return nil
}

func (s *Store) clear(ctx context.Context) error {
	err := s.storage.Delete(ctx, localstore.KeyToken, localstore.KeyUser)
	s.set(ctx, nil, "")
	return err
}

func (s *Store) set(ctx context.Context, id *model.Identity, token string) {
	s.mu.Lock()
	changed := !sameIdentity(s.identity, id)
	s.identity = id
	s.token = token
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		var cp *model.Identity
		if id != nil {
			v := *id
			cp = &v
		}
		l(ctx, cp)
	}
}

func sameIdentity(a, b *model.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Store) failure(op string, err error, fallback string) Result {
	s.log.Warn(op+" failed", "err", err)
	res := Result{Message: api.Message(err, fallback)}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		res.Errors = apiErr.FieldErrors()
	}
	return res
}

func invalid(err error) Result {
	return Result{Message: "Please correct the highlighted fields", Errors: validation.Fields(err)}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
