package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"housingadmin/console/internal/console"
	"housingadmin/console/internal/models"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/session"
	"housingadmin/console/internal/validation"
)

type profileView struct {
	Profile  formView
	Password formView
}

// adminID reads the signed-in admin's id from the token claims.
func (h *Handler) adminID(c *gin.Context) string {
	claims, err := session.ParseClaims(currentSession(c).Token())
	if err != nil {
		h.logger.WithError(err).Warn("Session token has no readable claims")
		return ""
	}
	return claims.AccountID()
}

func profileForm(d console.AdminDraft, errs validation.FieldErrors, submitErr error) formView {
	v := formView{Title: "My profile", Action: "/profile", Cancel: "/"}
	if submitErr != nil {
		v.Error = submitErr.Error()
	}
	v.add(errs, "firstName", "First name", "text", d.FirstName)
	v.add(errs, "lastName", "Last name", "text", d.LastName)
	v.add(errs, "email", "Email", "email", d.Email)
	v.add(errs, "contactNumber", "Contact number", "tel", d.ContactNumber)
	v.add(errs, "address", "Address", "text", d.Address)
	return v
}

func passwordForm(errs validation.FieldErrors, submitErr error) formView {
	v := formView{Title: "Change password", Action: "/profile/password", Cancel: "/"}
	if submitErr != nil {
		v.Error = submitErr.Error()
	}
	v.add(errs, "password", "New password", "password", "")
	v.add(errs, "confirmPassword", "Confirm password", "password", "")
	return v
}

// loadAdmin fetches the signed-in admin, writing the error page on failure.
func (h *Handler) loadAdmin(c *gin.Context) (*models.Admin, bool) {
	id := h.adminID(c)
	if id == "" {
		h.notFound(c, "admin profile")
		return nil, false
	}
	admin, err := h.workspace(c).Clients.Admins.GetByID(c.Request.Context(), id)
	if err != nil {
		if h.unauthorized(c, err) {
			return nil, false
		}
		h.logger.WithError(err).WithField("admin", id).Error("Failed to load admin profile")
		h.render(c, http.StatusBadGateway, "error.html", "Profile", "profile", err.Error())
		return nil, false
	}
	return admin, true
}

func (h *Handler) Profile(c *gin.Context) {
	admin, ok := h.loadAdmin(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "profile.html", "My profile", "profile", profileView{
		Profile:  profileForm(console.AdminDraftFrom(*admin), nil, nil),
		Password: passwordForm(nil, nil),
	})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	admin, ok := h.loadAdmin(c)
	if !ok {
		return
	}
	d := console.AdminDraftFrom(*admin)
	if err := c.ShouldBind(&d); err != nil {
		h.render(c, http.StatusBadRequest, "profile.html", "My profile", "profile", profileView{
			Profile:  profileForm(d, nil, err),
			Password: passwordForm(nil, nil),
		})
		return
	}

	form := resource.NewForm[models.Admin, console.AdminDraft](h.workspace(c).Admins, h.validator, nil)
	form.Begin(d, admin.ID)
	if _, err := form.Submit(c.Request.Context()); err != nil {
		if !isValidation(err) && h.unauthorized(c, err) {
			return
		}
		status := http.StatusBadGateway
		if isValidation(err) {
			status, err = http.StatusUnprocessableEntity, nil
		}
		h.render(c, status, "profile.html", "My profile", "profile", profileView{
			Profile:  profileForm(form.Draft(), form.Errors(), err),
			Password: passwordForm(nil, nil),
		})
		return
	}
	h.flash(c, "Profile saved")
	c.Redirect(http.StatusSeeOther, "/profile")
}

func (h *Handler) ChangePassword(c *gin.Context) {
	admin, ok := h.loadAdmin(c)
	if !ok {
		return
	}
	var d console.PasswordDraft
	if err := c.ShouldBind(&d); err != nil {
		h.render(c, http.StatusBadRequest, "profile.html", "My profile", "profile", profileView{
			Profile:  profileForm(console.AdminDraftFrom(*admin), nil, nil),
			Password: passwordForm(nil, err),
		})
		return
	}

	form := resource.NewForm[models.Admin, console.PasswordDraft](h.workspace(c).Admins, h.validator, nil)
	form.Begin(d, admin.ID)
	if _, err := form.Submit(c.Request.Context()); err != nil {
		if !isValidation(err) && h.unauthorized(c, err) {
			return
		}
		status := http.StatusBadGateway
		if isValidation(err) {
			status, err = http.StatusUnprocessableEntity, nil
		}
		h.render(c, status, "profile.html", "My profile", "profile", profileView{
			Profile:  profileForm(console.AdminDraftFrom(*admin), nil, nil),
			Password: passwordForm(form.Errors(), err),
		})
		return
	}
	h.flash(c, "Password changed")
	c.Redirect(http.StatusSeeOther, "/profile")
}
