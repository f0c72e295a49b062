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

func (h *Handler) listings() *section[models.Listing, console.ListingDraft] {
	return &section[models.Listing, console.ListingDraft]{
		h:        h,
		name:     "listings",
		title:    "Property listings",
		singular: "listing",
		manager:  func(ws *console.Workspace) *resource.Manager[models.Listing] { return ws.Listings },
		columns:  []string{"Title", "Address", "Type", "Price", "Listed"},
		row: func(l models.Listing) tableRow {
			return tableRow{Cells: []string{l.Title, l.Address, string(l.PropertyType), formatMoney(l.Price), formatTime(l.CreatedAt)}}
		},
		filterLabel:   "Type",
		filterOptions: typeNames(),
		blank:         func() console.ListingDraft { return console.ListingDraft{} },
		draftFrom:     console.ListingDraftFrom,
		bind: func(c *gin.Context, d *console.ListingDraft) error {
			if err := c.ShouldBind(d); err != nil {
				return err
			}
			if keep, ok := c.GetPostFormArray("keepImages"); ok {
				d.Images = keptImages(d.Images, keep)
			}
			files, err := readFiles(c, "images")
			d.Files = files
			return err
		},
		fields: listingFields,
		images: func(d console.ListingDraft) []string {
			return append(append([]string(nil), d.Images...), previews(d.Files)...)
		},
		multipart: true,
		prepare: func(skipped *[]storage.Failure) resource.PrepareFunc[console.ListingDraft] {
			return h.uploads.Listing(skipped)
		},
		detail: listingDetail,
	}
}

func keptImages(images, keep []string) []string {
	wanted := make(map[string]bool, len(keep))
	for _, u := range keep {
		wanted[u] = true
	}
	var out []string
	for _, u := range images {
		if wanted[u] {
			out = append(out, u)
		}
	}
	return out
}

func listingFields(v *formView, d console.ListingDraft, errs validation.FieldErrors, _ bool) {
	v.add(errs, "title", "Title", "text", d.Title)
	v.add(errs, "description", "Description", "textarea", d.Description)
	v.add(errs, "price", "Price", "number", formatFloat(d.Price))
	v.add(errs, "address", "Address", "text", d.Address)
	v.add(errs, "propertyType", "Property type", "select", d.PropertyType).Options = typeNames()
	v.add(errs, "bedrooms", "Bedrooms", "number", itoa(d.Bedrooms))
	v.add(errs, "bathrooms", "Bathrooms", "number", itoa(d.Bathrooms))
	v.add(errs, "area", "Area (m²)", "number", formatFloat(d.Area))
	v.add(errs, "userId", "Owner user id", "text", d.UserID)
	images := v.add(errs, "images", "Images", "file", "")
	images.Multiple = true
	images.Accept = strings.Join(storage.ImagePolicy.Allowed, ",")
	if len(d.Images) > 0 {
		v.add(errs, "keepImages", "Keep images", "checkboxes", "").Options = append([]string(nil), d.Images...)
	}
}

func listingDetail(_ *gin.Context, _ *console.Workspace, l models.Listing) detailView {
	view := detailView{
		Title: l.Title,
		Tabs: []detailTab{
			{
				Key:   "overview",
				Label: "Overview",
				Fields: []pair{
					{"Price", formatMoney(l.Price)},
					{"Address", l.Address},
					{"Type", string(l.PropertyType)},
					{"Description", l.Description},
					{"Listed", formatTime(l.CreatedAt)},
				},
			},
			{
				Key:   "details",
				Label: "Details",
				Fields: []pair{
					{"Bedrooms", itoa(l.Bedrooms)},
					{"Bathrooms", itoa(l.Bathrooms)},
					{"Area", formatFloat(l.Area)},
				},
			},
			{Key: "images", Label: "Images", Images: l.Images},
		},
	}
	if l.UserID != "" {
		view.Tabs[0].Links = []link{{Label: "Open owner", URL: "/users/" + l.UserID}}
	}
	return view
}
