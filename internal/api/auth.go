package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"housingadmin/console/internal/validation"
)

type loginForm struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (h *Handler) loginView(f loginForm, errs validation.FieldErrors, msg string) formView {
	v := formView{Title: "Admin sign in", Action: "/login", Error: msg}
	v.add(errs, "email", "Email", "email", f.Email)
	v.add(errs, "password", "Password", "password", "")
	return v
}

func (h *Handler) LoginPage(c *gin.Context) {
	if currentSession(c).Token() != "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	h.render(c, http.StatusOK, "login.html", "Sign in", "", h.loginView(loginForm{}, nil, ""))
}

func (h *Handler) Login(c *gin.Context) {
	var f loginForm
	if err := c.ShouldBind(&f); err != nil {
		h.render(c, http.StatusBadRequest, "login.html", "Sign in", "", h.loginView(f, nil, "Invalid form"))
		return
	}
	f.Email = strings.TrimSpace(f.Email)
	if errs := h.validator.Struct(f); errs != nil {
		h.render(c, http.StatusUnprocessableEntity, "login.html", "Sign in", "", h.loginView(f, errs, ""))
		return
	}

	sc := currentSession(c)
	// the login call needs no token, any session's client set will do
	clients := h.newClients(sc)
	token, admin, err := clients.Auth.Login(c.Request.Context(), f.Email, f.Password)
	if err != nil {
		h.logger.WithError(err).WithField("email", f.Email).Warn("Admin login failed")
		h.render(c, http.StatusUnauthorized, "login.html", "Sign in", "", h.loginView(f, nil, err.Error()))
		return
	}

	// start from a clean workspace for the new identity
	h.workspaces.Drop(sc.ID())
	if err := sc.Save(token); err != nil {
		h.logger.WithError(err).Error("Failed to store session token")
		h.render(c, http.StatusInternalServerError, "login.html", "Sign in", "", h.loginView(f, nil, "Could not start session"))
		return
	}

	h.logger.WithField("admin", admin.ID).Info("Admin signed in")
	h.flash(c, "Welcome back "+admin.FullName())
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout forgets the token and disposes every page of the session.
func (h *Handler) Logout(c *gin.Context) {
	h.endSession(currentSession(c))
	c.Redirect(http.StatusSeeOther, "/login")
}
