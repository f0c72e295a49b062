package session

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Role distinguishes the key a token is persisted under.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// StorageKey is the key the role's token is stored under, e.g. "adminToken".
func (r Role) StorageKey() string {
	return string(r) + "Token"
}

var ErrNoToken = errors.New("no token stored for session")

// Store persists tokens per browser session and role key.
type Store interface {
	LoadToken(sessionID, key string) (string, error)
	SaveToken(sessionID, key, token string) error
	DeleteTokens(sessionID string) error
}

// Context is the session handed to every resource client. It reads the token
// on each call, so a logout takes effect on the next request.
type Context struct {
	id     string
	role   Role
	store  Store
	logger *logrus.Logger
}

func New(id string, role Role, store Store, logger *logrus.Logger) *Context {
	if logger == nil {
		logger = logrus.New()
	}
	return &Context{id: id, role: role, store: store, logger: logger}
}

func (c *Context) ID() string { return c.id }

func (c *Context) Role() Role { return c.role }

// Token returns the stored token or "" when there is none. A missing token
// is left for the backend to reject.
func (c *Context) Token() string {
	token, err := c.store.LoadToken(c.id, c.role.StorageKey())
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			c.logger.WithError(err).WithField("session", c.id).Error("Failed to load session token")
		}
		return ""
	}
	return token
}

func (c *Context) Save(token string) error {
	return c.store.SaveToken(c.id, c.role.StorageKey(), token)
}

// Clear removes every token of the session. Called on logout only.
func (c *Context) Clear() error {
	return c.store.DeleteTokens(c.id)
}

// Static is a fixed token, for tests and the CLI.
type Static string

func (s Static) Token() string { return string(s) }
