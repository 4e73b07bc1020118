package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/Duongo16/vtm-apidocs/internal/apihttp"
)

// ErrNoSessionCookie means a login answered 2xx without setting the session
// cookie.
var ErrNoSessionCookie = errors.New("login succeeded but no " + apihttp.SessionCookie + " cookie was set")

// Auth talks to the user service's /api/auth endpoints.
type Auth struct {
	endpoint
}

func NewAuth(c *apihttp.Client, baseURL string) *Auth {
	return &Auth{endpoint{Client: c, BaseURL: baseURL}}
}

type Login struct {
	Token string
	User  User
}

func (a *Auth) Login(ctx context.Context, email, password string) (*Login, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}
	var out struct {
		User User `json:"user"`
	}
	res, err := a.sendJSONResult(ctx, http.MethodPost, "/api/auth/login", body)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(res, &out); err != nil {
		return nil, err
	}
	token, ok := apihttp.SessionFromHeaders(res.Headers)
	if !ok {
		return nil, ErrNoSessionCookie
	}
	return &Login{Token: token, User: out.User}, nil
}

// Register creates an account and returns the service's message.
func (a *Auth) Register(ctx context.Context, name, email, password, role string) (string, error) {
	body := struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}{name, email, password, role}
	var out struct {
		Message string `json:"message"`
	}
	if err := a.sendJSON(ctx, http.MethodPost, "/api/auth/register", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Me returns the user the session cookie belongs to.
func (a *Auth) Me(ctx context.Context) (*User, error) {
	var out User
	if err := a.getJSON(ctx, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Auth) Logout(ctx context.Context) error {
	return a.sendJSON(ctx, http.MethodPost, "/api/auth/logout", struct{}{}, nil)
}
