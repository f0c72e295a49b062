package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"housingadmin/console/internal/console"
	"housingadmin/console/internal/models"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/storage"
	"housingadmin/console/internal/validation"
)

// Reports are created and deleted but never edited.
func (h *Handler) reports() *section[models.Report, console.ReportDraft] {
	return &section[models.Report, console.ReportDraft]{
		h:        h,
		name:     "reports",
		title:    "Reports",
		singular: "report",
		manager:  func(ws *console.Workspace) *resource.Manager[models.Report] { return ws.Reports },
		columns:  []string{"Title", "Document", "Type", "User", "Uploaded"},
		row: func(r models.Report) tableRow {
			return tableRow{Cells: []string{r.Title, r.Document.Name, r.Document.FileType, r.UserID, formatTime(r.CreatedAt)}}
		},
		blank: func() console.ReportDraft { return console.ReportDraft{} },
		bind: func(c *gin.Context, d *console.ReportDraft) error {
			if err := c.ShouldBind(d); err != nil {
				return err
			}
			files, err := readFiles(c, "document")
			if err != nil {
				return err
			}
			if len(files) > 0 {
				d.File = &files[0]
			}
			return nil
		},
		fields: func(v *formView, d console.ReportDraft, errs validation.FieldErrors, _ bool) {
			v.add(errs, "title", "Title", "text", d.Title)
			v.add(errs, "description", "Description", "textarea", d.Description)
			v.add(errs, "userId", "User id", "text", d.UserID)
			v.add(errs, "document", "Document", "file", "").Accept = strings.Join(storage.DocumentPolicy.Allowed, ",")
		},
		multipart: true,
		prepare: func(*[]storage.Failure) resource.PrepareFunc[console.ReportDraft] {
			return h.uploads.Report()
		},
		detail: func(_ *gin.Context, _ *console.Workspace, r models.Report) detailView {
			return detailView{
				Title: r.Title,
				Tabs: []detailTab{{
					Key:   "overview",
					Label: "Overview",
					Fields: []pair{
						{"Description", r.Description},
						{"Document", r.Document.Name},
						{"File type", r.Document.FileType},
						{"Uploaded", formatTime(r.CreatedAt)},
					},
					Links: []link{
						{Label: "Open document", URL: r.Document.URL},
						{Label: "Open user", URL: "/users/" + r.UserID},
					},
				}},
			}
		},
	}
}
