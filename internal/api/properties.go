package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"housingadmin/console/internal/client"
	"housingadmin/console/internal/console"
	"housingadmin/console/internal/geometry"
	"housingadmin/console/internal/models"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/storage"
	"housingadmin/console/internal/validation"
)

func statusNames() []string {
	out := make([]string, len(models.RegistrationStatuses))
	for i, s := range models.RegistrationStatuses {
		out[i] = string(s)
	}
	return out
}

func typeNames() []string {
	out := make([]string, len(models.PropertyTypes))
	for i, t := range models.PropertyTypes {
		out[i] = string(t)
	}
	return out
}

func (h *Handler) properties() *section[models.Property, console.PropertyDraft] {
	return &section[models.Property, console.PropertyDraft]{
		h:        h,
		name:     "properties",
		title:    "Property registrations",
		singular: "registration",
		manager:  func(ws *console.Workspace) *resource.Manager[models.Property] { return ws.Properties },
		columns:  []string{"Address", "Type", "Bedrooms", "Area", "Submitted"},
		row: func(p models.Property) tableRow {
			return tableRow{
				Cells: []string{p.Address, string(p.PropertyType), itoa(p.Bedrooms), formatFloat(p.Area), formatTime(p.CreatedAt)},
				Badge: string(p.Status),
			}
		},
		filterLabel:   "Status",
		filterOptions: statusNames(),
		blank:         func() console.PropertyDraft { return console.PropertyDraft{} },
		draftFrom:     console.PropertyDraftFrom,
		bind: func(c *gin.Context, d *console.PropertyDraft) error {
			if err := c.ShouldBind(d); err != nil {
				return err
			}
			if keep, ok := c.GetPostFormArray("keepPhotos"); ok {
				d.Photos = keptPhotos(d.Photos, keep)
			}
			files, err := readFiles(c, "photos")
			d.Files = files
			return err
		},
		fields: propertyFields,
		images: func(d console.PropertyDraft) []string {
			var out []string
			for _, p := range d.Photos {
				out = append(out, p.URL)
			}
			return append(out, previews(d.Files)...)
		},
		multipart: true,
		prepare: func(skipped *[]storage.Failure) resource.PrepareFunc[console.PropertyDraft] {
			return h.uploads.Property(skipped)
		},
		detail: h.propertyDetail,
	}
}

// keptPhotos drops the photos whose URL was unticked on the edit form.
func keptPhotos(photos []models.Photo, keep []string) []models.Photo {
	wanted := make(map[string]bool, len(keep))
	for _, u := range keep {
		wanted[u] = true
	}
	var out []models.Photo
	for _, p := range photos {
		if wanted[p.URL] {
			out = append(out, p)
		}
	}
	return out
}

func propertyFields(v *formView, d console.PropertyDraft, errs validation.FieldErrors, _ bool) {
	v.add(errs, "userId", "Owner user id", "text", d.UserID)
	v.add(errs, "propertyType", "Property type", "select", d.PropertyType).Options = typeNames()
	v.add(errs, "address", "Address", "text", d.Address)
	v.add(errs, "lat", "Latitude", "text", d.Latitude)
	v.add(errs, "lng", "Longitude", "text", d.Longitude)
	v.add(errs, "bedrooms", "Bedrooms", "number", itoa(d.Bedrooms))
	v.add(errs, "bathrooms", "Bathrooms", "number", itoa(d.Bathrooms))
	v.add(errs, "area", "Area (m²)", "number", formatFloat(d.Area))
	v.add(errs, "yearBuilt", "Year built", "text", d.YearBuilt)
	v.add(errs, "description", "Description", "textarea", d.Description)
	v.add(errs, "amenities", "Amenities (comma separated)", "text", d.Amenities)
	photos := v.add(errs, "photos", "Photos", "file", "")
	photos.Multiple = true
	photos.Accept = strings.Join(storage.ImagePolicy.Allowed, ",")
	if len(d.Photos) > 0 {
		keep := v.add(errs, "keepPhotos", "Keep photos", "checkboxes", "")
		for _, p := range d.Photos {
			keep.Options = append(keep.Options, p.URL)
		}
	}
}

func (h *Handler) propertyDetail(c *gin.Context, ws *console.Workspace, p models.Property) detailView {
	view := detailView{
		Title: p.Address,
		Badge: string(p.Status),
		Tabs: []detailTab{
			{
				Key:   "overview",
				Label: "Overview",
				Fields: []pair{
					{"Type", string(p.PropertyType)},
					{"Address", p.Address},
					{"Status", string(p.Status)},
					{"Submitted", formatTime(p.CreatedAt)},
					{"Updated", formatTime(p.UpdatedAt)},
				},
			},
			{
				Key:   "details",
				Label: "Details",
				Fields: []pair{
					{"Bedrooms", itoa(p.Bedrooms)},
					{"Bathrooms", itoa(p.Bathrooms)},
					{"Area", formatFloat(p.Area)},
					{"Year built", optionalInt(p.YearBuilt)},
					{"Latitude", optionalFloat(p.Latitude)},
					{"Longitude", optionalFloat(p.Longitude)},
					{"Amenities", joinOr(p.Amenities, "None")},
					{"Description", p.Description},
				},
			},
		},
	}

	photos := detailTab{Key: "photos", Label: "Photos"}
	for _, ph := range p.Photos {
		photos.Images = append(photos.Images, ph.URL)
	}
	if len(p.Photos) == 0 {
		photos.Note = "No photos uploaded"
	}

	owner := detailTab{Key: "owner", Label: "Owner"}
	if c.Query("tab") == "owner" {
		u, err := ws.Clients.Users.GetByID(c.Request.Context(), p.UserID)
		if err != nil {
			h.logger.WithError(err).WithField("user", p.UserID).Error("Failed to load owner")
			owner.Note = err.Error()
		} else {
			owner.Fields = []pair{
				{"Name", u.FullName()},
				{"Email", u.Email},
				{"Contact number", u.ContactNumber},
				{"Address", u.Address},
			}
			owner.Links = []link{{Label: "Open user", URL: "/users/" + u.ID}}
		}
	} else {
		owner.Links = []link{{Label: "Load owner", URL: "/properties/" + p.ID + "?tab=owner"}}
	}

	management := detailTab{Key: "management", Label: "Management", Note: "Changing the status takes effect immediately."}
	for _, s := range models.RegistrationStatuses {
		view.Statuses = append(view.Statuses, statusButton{
			Value:   string(s),
			Current: s == p.Status,
			Allowed: h.transitions.Allowed(string(p.Status), string(s)),
		})
	}

	view.Tabs = append(view.Tabs, photos, owner, management)
	return view
}

// SetStatus applies a status from the management tab.
func (h *Handler) SetStatus(c *gin.Context) {
	id := c.Param("id")
	status := c.PostForm("status")
	back := "/properties/" + id + "?tab=management"

	if !models.RegistrationStatus(status).Valid() {
		h.flash(c, "Unknown status "+status)
		c.Redirect(http.StatusSeeOther, back)
		return
	}

	m := h.workspace(c).Properties
	if err := m.EnsureLoaded(c.Request.Context()); err != nil && h.unauthorized(c, err) {
		return
	}
	_, err := m.SetStatus(c.Request.Context(), id, status)
	switch {
	case err == nil:
		h.flash(c, "Status set to "+status)
		c.Redirect(http.StatusSeeOther, back)
	case errors.Is(err, resource.ErrNotFound):
		h.notFound(c, "registration")
	case errors.Is(err, resource.ErrTransitionNotAllowed):
		h.flash(c, err.Error())
		c.Redirect(http.StatusSeeOther, back)
	default:
		h.backendFailed(c, err, back)
	}
}

// PropertyMap returns the filtered registrations as GeoJSON with their bound.
func (h *Handler) PropertyMap(c *gin.Context) {
	m := h.workspace(c).Properties
	if err := m.EnsureLoaded(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to load registrations for map")
		status := http.StatusBadGateway
		if client.IsUnauthorized(err) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	rows := m.FilteredBy(c.Query("search"), c.Query("status"))
	props := make([]models.Property, len(rows))
	for i, r := range rows {
		props[i] = r.Item
	}

	out := geometry.BuildMap(props)
	if c.Query("areas") == "true" {
		for _, f := range geometry.StatusAreas(props) {
			out.Features.Append(f)
		}
	}
	c.JSON(http.StatusOK, out)
}
