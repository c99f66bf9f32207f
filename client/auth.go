package client

import (
	"context"
	"errors"
	"net/http"
)

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// User is an account as returned by registration.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email and password for an access token.
// A 401 reply matches [ErrAuthRejected].
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.postJSON(ctx, "auth/login", credentials{Email: email, Password: password}, &out, false, "login failed")
	if err != nil {
		var se *ServerError
		if errors.As(err, &se) && se.Status == http.StatusUnauthorized {
			se.Detail = "invalid credentials (401)"
		}
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, ErrUnexpectedResponse
	}
	return &out, nil
}

// Register creates an account. An existing email yields a 409 [*ServerError].
func (c *Client) Register(ctx context.Context, email, password string) (*User, error) {
	var out User
	if err := c.postJSON(ctx, "auth/register", credentials{Email: email, Password: password}, &out, false, "registration failed"); err != nil {
		return nil, err
	}
	return &out, nil
}
