package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadFailures lists files skipped by recent uploads.
func (h *Handler) UploadFailures(c *gin.Context) {
	view := listView{
		Title:         "Skipped uploads",
		Path:          "/uploads/failures",
		Columns:       []string{"When", "Section", "File", "Reason"},
		Filter:        c.Query("filter"),
		FilterLabel:   "Section",
		FilterOptions: []string{"properties", "listings", "reports"},
		ReadOnly:      true,
	}
	if h.failures == nil {
		view.Error = "Upload failures are not being recorded"
		h.render(c, http.StatusOK, "list.html", view.Title, "uploads", view)
		return
	}

	items, err := h.failures.UploadFailures(c.Request.Context(), view.Filter, 200)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list upload failures")
		view.Error = err.Error()
	}
	for _, f := range items {
		view.Rows = append(view.Rows, tableRow{Cells: []string{formatTime(f.CreatedAt), f.Resource, f.File, f.Reason}})
	}
	h.render(c, http.StatusOK, "list.html", view.Title, "uploads", view)
}
