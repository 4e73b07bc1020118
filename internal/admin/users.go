package admin

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Duongo16/vtm-apidocs/internal/apihttp"
)

// Users manages accounts through /api/admin/users.
type Users struct {
	endpoint
}

func NewUsers(c *apihttp.Client, baseURL string) *Users {
	return &Users{endpoint{Client: c, BaseURL: baseURL}}
}

const usersPath = "/api/admin/users"

func (u *Users) List(ctx context.Context, f UserFilter) ([]User, error) {
	var out []User
	q := url.Values{"q": {f.Query}, "role": {f.Role}, "status": {f.Status}}
	err := u.getJSON(ctx, usersPath, q, &out)
	return out, err
}

func (u *Users) Create(ctx context.Context, in CreateUser) (*User, error) {
	var out User
	if err := u.sendJSON(ctx, http.MethodPost, usersPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces the editable fields of a user. An empty password keeps the
// current one.
func (u *Users) Update(ctx context.Context, id string, in UpdateUser) (*User, error) {
	var out User
	if err := u.sendJSON(ctx, http.MethodPut, usersPath+"/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Users) Delete(ctx context.Context, id string) error {
	_, err := u.do(ctx, request{method: http.MethodDelete, path: usersPath + "/" + url.PathEscape(id)})
	return err
}
