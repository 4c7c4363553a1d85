package client

import (
	"context"
	"net/http"

	"github.com/linesmerrill/legal-case-api/models"
)

// Signup registers a user and keeps the returned session token
func (c *Client) Signup(ctx context.Context, fullName, email, password string) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/signup", models.SignupRequest{
		FullName: fullName,
		Email:    email,
		Password: password,
	})
}

// Login signs in and keeps the returned session token
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/login", models.LoginRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, in interface{}) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Logout forgets the session token
func (c *Client) Logout() {
	c.SetToken("")
}

// Profile returns the signed in user
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile changes the name and email of the signed in user
func (c *Client) UpdateProfile(ctx context.Context, in models.ProfileUpdateRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPut, "/api/auth/profile", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAccount changes the password or email. Changing the password needs
// the current one.
func (c *Client) UpdateAccount(ctx context.Context, in models.AccountUpdateRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPut, "/api/auth/account", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadSettings fetches the stored preferences, or the defaults when the user
// never saved any
func (c *Client) LoadSettings(ctx context.Context) (models.UserPreferences, error) {
	var p models.UserPreferences
	err := c.doJSON(ctx, http.MethodGet, "/api/auth/preferences", nil, &p)
	return p, err
}

// SaveSettings stores p and returns what the server kept
func (c *Client) SaveSettings(ctx context.Context, p models.UserPreferences) (models.UserPreferences, error) {
	var out models.UserPreferences
	err := c.doJSON(ctx, http.MethodPut, "/api/auth/preferences", p, &out)
	return out, err
}
