package console

import (
	"housingadmin/console/internal/models"
	"housingadmin/console/internal/resource"
)

var UserKind = resource.Kind[models.User]{
	Name: "users",
	SearchFields: func(u models.User) []string {
		return []string{u.FullName(), u.Email, u.ContactNumber, u.Address}
	},
}

var AdminKind = resource.Kind[models.Admin]{
	Name: "admins",
	SearchFields: func(a models.Admin) []string {
		return []string{a.FullName(), a.Email}
	},
}

// PropertyKind filters registrations by status and carries their review lifecycle.
var PropertyKind = resource.Kind[models.Property]{
	Name: "properties",
	SearchFields: func(p models.Property) []string {
		return []string{p.Address, string(p.PropertyType), p.Description, p.UserID}
	},
	Category: func(p models.Property) string { return string(p.Status) },
	Status:   func(p models.Property) string { return string(p.Status) },
	WithStatus: func(p models.Property, s string) models.Property {
		p.Status = models.RegistrationStatus(s)
		return p
	},
}

// ListingKind filters listings by property type.
var ListingKind = resource.Kind[models.Listing]{
	Name: "listings",
	SearchFields: func(l models.Listing) []string {
		return []string{l.Title, l.Address, l.Description}
	},
	Category: func(l models.Listing) string { return string(l.PropertyType) },
}

var ReportKind = resource.Kind[models.Report]{
	Name: "reports",
	SearchFields: func(r models.Report) []string {
		return []string{r.Title, r.Description, r.Document.Name}
	},
	Category: func(r models.Report) string { return r.Document.FileType },
}
