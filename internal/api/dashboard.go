package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"housingadmin/console/internal/models"
)

type dashboardView struct {
	Users      int
	Properties int
	Listings   int
	Reports    int
	ByStatus   []pair
	Errors     []string
}

func (h *Handler) Dashboard(c *gin.Context) {
	ws := h.workspace(c)
	counts := ws.Counts(c.Request.Context())

	view := dashboardView{
		Users:      counts.Users,
		Properties: counts.Properties,
		Listings:   counts.Listings,
		Reports:    counts.Reports,
	}
	for _, s := range models.RegistrationStatuses {
		view.ByStatus = append(view.ByStatus, pair{Label: string(s), Value: itoa(counts.ByStatus[s])})
	}
	for _, msg := range []string{ws.Users.Err(), ws.Properties.Err(), ws.Listings.Err(), ws.Reports.Err()} {
		if msg != "" {
			view.Errors = append(view.Errors, msg)
		}
	}
	h.render(c, http.StatusOK, "dashboard.html", "Dashboard", "dashboard", view)
}
