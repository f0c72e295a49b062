package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"

	"housingadmin/console/internal/client"
	"housingadmin/console/internal/console"
	"housingadmin/console/internal/database"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/session"
	"housingadmin/console/internal/storage"
	"housingadmin/console/internal/validation"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	cookieName   = "console-session"
	sessionIDKey = "sid"
	ctxSession   = "session"
)

// FailureLog is where skipped uploads are recorded and read back.
type FailureLog interface {
	console.FailureRecorder
	UploadFailures(ctx context.Context, resource string, limit int) ([]database.UploadFailure, error)
}

type Deps struct {
	Logger *logrus.Logger
	// Tokens persists the bearer token of each browser session.
	Tokens session.Store
	// Cookies carries only the session id.
	Cookies     sessions.Store
	Failures    FailureLog
	Transitions resource.Transitions
	Uploads     *console.Uploads
	// NewClients builds the backend clients for one session.
	NewClients func(tokens client.TokenSource) *client.Set
	Now        func() time.Time
}

type Handler struct {
	logger      *logrus.Logger
	tokens      session.Store
	cookies     sessions.Store
	failures    FailureLog
	transitions resource.Transitions
	uploads     *console.Uploads
	validator   *validation.Validator
	newClients  func(tokens client.TokenSource) *client.Set
	workspaces  *console.Workspaces
	now         func() time.Time
}

func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	uploads := deps.Uploads
	if uploads == nil {
		uploads = &console.Uploads{}
	}
	if uploads.Logger == nil {
		uploads.Logger = logger
	}
	if uploads.Images == nil {
		uploads.Images = storage.NewBatch(nil, storage.ImagePolicy, logger)
	}
	if uploads.Documents == nil {
		uploads.Documents = storage.NewBatch(nil, storage.DocumentPolicy, logger)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	h := &Handler{
		logger:      logger,
		tokens:      deps.Tokens,
		cookies:     deps.Cookies,
		failures:    deps.Failures,
		transitions: deps.Transitions,
		uploads:     uploads,
		validator:   validation.New(),
		newClients:  deps.NewClients,
		now:         now,
	}
	h.workspaces = console.NewWorkspaces(func(sessionID string) *console.Workspace {
		return console.NewWorkspace(h.newClients(h.sessionFor(sessionID)), h.transitions, h.logger)
	})
	return h
}

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"lower": strings.ToLower,
	}).ParseFS(templatesFS, "templates/*.html"))
}

func (h *Handler) sessionFor(id string) *session.Context {
	return session.New(id, session.RoleAdmin, h.tokens, h.logger)
}

// AccessLog logs one line per request.
func AccessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}).Info("Request handled")
	}
}

// withSession makes sure the browser has a session id cookie.
func (h *Handler) withSession(c *gin.Context) {
	s, err := h.cookies.Get(c.Request, cookieName)
	if err != nil {
		h.logger.WithError(err).Warn("Discarding unreadable session cookie")
	}
	id, _ := s.Values[sessionIDKey].(string)
	if id == "" {
		id = uuid.NewString()
		s.Values[sessionIDKey] = id
		if err := s.Save(c.Request, c.Writer); err != nil {
			h.logger.WithError(err).Error("Failed to save session cookie")
		}
	}
	c.Set(ctxSession, h.sessionFor(id))
	c.Next()
}

func currentSession(c *gin.Context) *session.Context {
	return c.MustGet(ctxSession).(*session.Context)
}

// requireAdmin sends visitors without a live token to the login page.
func (h *Handler) requireAdmin(c *gin.Context) {
	sc := currentSession(c)
	token := sc.Token()
	if token == "" {
		h.workspaces.Drop(sc.ID())
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
		return
	}
	if claims, err := session.ParseClaims(token); err == nil && claims.Expired(h.now()) {
		h.logger.WithField("session", sc.ID()).Info("Session token expired")
		h.endSession(sc)
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
		return
	}
	c.Next()
}

func (h *Handler) endSession(sc *session.Context) {
	if err := sc.Clear(); err != nil {
		h.logger.WithError(err).WithField("session", sc.ID()).Error("Failed to clear session tokens")
	}
	h.workspaces.Drop(sc.ID())
}

// ForgetIdleSessions drops the workspace of every session that no longer has
// a stored token, e.g. after the token purge.
func (h *Handler) ForgetIdleSessions() int {
	return h.workspaces.Retain(func(id string) bool {
		return h.sessionFor(id).Token() != ""
	})
}

func (h *Handler) workspace(c *gin.Context) *console.Workspace {
	return h.workspaces.Get(currentSession(c).ID())
}

func (h *Handler) flash(c *gin.Context, msg string) {
	s, _ := h.cookies.Get(c.Request, cookieName)
	s.AddFlash(msg)
	if err := s.Save(c.Request, c.Writer); err != nil {
		h.logger.WithError(err).Error("Failed to save flash message")
	}
}

func (h *Handler) flashes(c *gin.Context) []string {
	s, _ := h.cookies.Get(c.Request, cookieName)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := s.Save(c.Request, c.Writer); err != nil {
		h.logger.WithError(err).Error("Failed to save session cookie")
	}
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (h *Handler) adminName(c *gin.Context) string {
	claims, err := session.ParseClaims(currentSession(c).Token())
	if err != nil {
		return ""
	}
	return claims.Email
}

func (h *Handler) render(c *gin.Context, status int, name, title, nav string, body any) {
	c.HTML(status, name, page{
		Title:   title,
		Nav:     nav,
		Admin:   h.adminName(c),
		Flashes: h.flashes(c),
		Body:    body,
	})
}

// backendFailed handles an error from a backend call made on behalf of a
// page. A rejected token ends the session.
func (h *Handler) backendFailed(c *gin.Context, err error, redirect string) {
	if h.unauthorized(c, err) {
		return
	}
	h.flash(c, err.Error())
	c.Redirect(http.StatusSeeOther, redirect)
}

func (h *Handler) notFound(c *gin.Context, what string) {
	h.render(c, http.StatusNotFound, "error.html", "Not found", "", what+" not found")
}

func isValidation(err error) bool {
	return errors.Is(err, resource.ErrValidation)
}

// unauthorized ends the session and redirects when err is a rejected token.
func (h *Handler) unauthorized(c *gin.Context, err error) bool {
	if !client.IsUnauthorized(err) {
		return false
	}
	h.logger.WithError(err).Warn("Backend rejected session token")
	h.endSession(currentSession(c))
	c.Redirect(http.StatusSeeOther, "/login")
	return true
}
