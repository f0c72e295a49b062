package api

import (
	"github.com/gin-gonic/gin"

	"housingadmin/console/internal/console"
	"housingadmin/console/internal/models"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/validation"
)

func (h *Handler) users() *section[models.User, console.UserDraft] {
	return &section[models.User, console.UserDraft]{
		h:        h,
		name:     "users",
		title:    "Users",
		singular: "user",
		manager:  func(ws *console.Workspace) *resource.Manager[models.User] { return ws.Users },
		columns:  []string{"Name", "Email", "Contact", "Address", "Joined"},
		row: func(u models.User) tableRow {
			return tableRow{Cells: []string{u.FullName(), u.Email, u.ContactNumber, u.Address, formatTime(u.CreatedAt)}}
		},
		blank:     func() console.UserDraft { return console.UserDraft{} },
		draftFrom: console.UserDraftFrom,
		bind: func(c *gin.Context, d *console.UserDraft) error {
			// the password is never prefilled, so a blank field keeps the old one
			d.Password, d.ConfirmPassword = "", ""
			return c.ShouldBind(d)
		},
		fields: userFields,
		detail: h.userDetail,
	}
}

func userFields(v *formView, d console.UserDraft, errs validation.FieldErrors, editing bool) {
	v.add(errs, "firstName", "First name", "text", d.FirstName)
	v.add(errs, "lastName", "Last name", "text", d.LastName)
	v.add(errs, "email", "Email", "email", d.Email)
	v.add(errs, "contactNumber", "Contact number", "tel", d.ContactNumber)
	v.add(errs, "address", "Address", "text", d.Address)
	label := "Password"
	if editing {
		label = "New password (leave blank to keep)"
	}
	v.add(errs, "password", label, "password", "")
	v.add(errs, "confirmPassword", "Confirm password", "password", "")
}

// userDetail also lists the user's registrations and reports.
func (h *Handler) userDetail(c *gin.Context, ws *console.Workspace, u models.User) detailView {
	ctx := c.Request.Context()
	view := detailView{
		Title: u.FullName(),
		Tabs: []detailTab{{
			Key:   "profile",
			Label: "Profile",
			Fields: []pair{
				{"Email", u.Email},
				{"Contact number", u.ContactNumber},
				{"Address", u.Address},
				{"Joined", formatTime(u.CreatedAt)},
				{"Updated", formatTime(u.UpdatedAt)},
			},
		}},
	}

	props := detailTab{Key: "properties", Label: "Registrations"}
	if items, err := ws.Clients.Properties.GetByUser(ctx, u.ID); err != nil {
		h.logger.WithError(err).WithField("user", u.ID).Error("Failed to load user registrations")
		props.Note = err.Error()
	} else {
		for _, p := range items {
			props.Links = append(props.Links, link{Label: p.Address + " (" + string(p.Status) + ")", URL: "/properties/" + p.ID})
		}
		if len(items) == 0 {
			props.Note = "No registrations"
		}
	}

	reports := detailTab{Key: "reports", Label: "Reports"}
	if items, err := ws.Clients.Reports.GetByUser(ctx, u.ID); err != nil {
		h.logger.WithError(err).WithField("user", u.ID).Error("Failed to load user reports")
		reports.Note = err.Error()
	} else {
		for _, r := range items {
			reports.Links = append(reports.Links, link{Label: r.Title, URL: "/reports/" + r.ID})
		}
		if len(items) == 0 {
			reports.Note = "No reports"
		}
	}

	view.Tabs = append(view.Tabs, props, reports)
	return view
}
