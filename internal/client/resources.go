package client

import (
	"context"
	"net/http"
	"strings"

	"housingadmin/console/internal/models"
)

// Paths holds the collection base paths below the backend URL.
type Paths struct {
	Admins     string
	Users      string
	Properties string
	Listings   string
	Reports    string
}

var DefaultPaths = Paths{
	Admins:     "/admins",
	Users:      "/users",
	Properties: "/properties",
	Listings:   "/houses",
	Reports:    "/reports",
}

// Set groups one client per backend collection, all sharing a session.
type Set struct {
	Admins     *Resource[models.Admin]
	Users      *Resource[models.User]
	Properties *Resource[models.Property]
	Listings   *Resource[models.Listing]
	Reports    *Resource[models.Report]
	Auth       *Auth
}

// NewSet builds the clients for one session context.
func NewSet(backendURL string, paths Paths, tokens TokenSource, opts ...Option) *Set {
	base := strings.TrimRight(backendURL, "/")
	return &Set{
		Admins:     NewResource[models.Admin]("admin", base+paths.Admins, tokens, opts...),
		Users:      NewResource[models.User]("user", base+paths.Users, tokens, opts...),
		Properties: NewResource[models.Property]("property", base+paths.Properties, tokens, opts...),
		Listings:   NewResource[models.Listing]("listing", base+paths.Listings, tokens, opts...),
		Reports:    NewResource[models.Report]("report", base+paths.Reports, tokens, opts...),
		Auth:       NewAuth(base+paths.Admins, opts...),
	}
}

// Auth talks to the admin login endpoint. Token issuance itself belongs to
// the backend.
type Auth struct {
	res *Resource[loginResponse]
}

type loginResponse struct {
	Token string       `json:"token"`
	Admin models.Admin `json:"admin"`
}

func NewAuth(adminBaseURL string, opts ...Option) *Auth {
	return &Auth{res: NewResource[loginResponse]("admin session", adminBaseURL, nil, opts...)}
}

// Login exchanges admin credentials for a bearer token.
func (a *Auth) Login(ctx context.Context, email, password string) (string, *models.Admin, error) {
	var out loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := a.res.do(ctx, "create", http.MethodPost, "/login", body, &out); err != nil {
		return "", nil, err
	}
	if out.Token == "" {
		return "", nil, &APIError{Op: "create", Resource: "admin session", Message: "login response did not include a token"}
	}
	return out.Token, &out.Admin, nil
}
