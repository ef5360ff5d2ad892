package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token and the account record.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. Students receive a token; admins founding a
// new school receive a school code instead.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendOTP asks the backend to mail a one-time registration code.
func (c *Client) SendOTP(ctx context.Context, email string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/auth/send-otp", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword asks the backend to mail a password reset code.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/auth/forgot-password", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetPassword sets a new password using a reset code.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/reset-password", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
