package models

import "time"

// RegistrationStatus is the review state of a property registration.
type RegistrationStatus string

const (
	StatusPending        RegistrationStatus = "Pending"
	StatusApproved       RegistrationStatus = "Approved"
	StatusRejected       RegistrationStatus = "Rejected"
	StatusNeedsDocuments RegistrationStatus = "Needs Documents"
)

// RegistrationStatuses lists every status in display order.
var RegistrationStatuses = []RegistrationStatus{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusNeedsDocuments,
}

// Valid reports whether s is one of the known registration statuses.
func (s RegistrationStatus) Valid() bool {
	for _, known := range RegistrationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PropertyType classifies a registration or listing.
type PropertyType string

const (
	TypeHouse      PropertyType = "House"
	TypeApartment  PropertyType = "Apartment"
	TypeVilla      PropertyType = "Villa"
	TypeLand       PropertyType = "Land"
	TypeCommercial PropertyType = "Commercial"
)

var PropertyTypes = []PropertyType{
	TypeHouse,
	TypeApartment,
	TypeVilla,
	TypeLand,
	TypeCommercial,
}

// Photo is one uploaded image of a registration.
type Photo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Property is the compliance-oriented registration shape managed on the
// property management pages.
type Property struct {
	ID           string             `json:"_id"`
	UserID       string             `json:"userId"`
	PropertyType PropertyType       `json:"propertyType"`
	Address      string             `json:"address"`
	Latitude     *float64           `json:"lat,omitempty"`
	Longitude    *float64           `json:"lng,omitempty"`
	Bedrooms     int                `json:"bedrooms"`
	Bathrooms    int                `json:"bathrooms"`
	Area         float64            `json:"area"`
	YearBuilt    *int               `json:"yearBuilt,omitempty"`
	Description  string             `json:"description,omitempty"`
	Amenities    []string           `json:"amenities"`
	Photos       []Photo            `json:"photos"`
	Status       RegistrationStatus `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func (p Property) Key() string { return p.ID }

// HasLocation reports whether both coordinates are set.
func (p Property) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Listing is the market-oriented shape shown on the property listing pages.
// It is kept apart from Property even where the fields overlap.
type Listing struct {
	ID           string       `json:"_id"`
	UserID       string       `json:"userId"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Price        float64      `json:"price"`
	Address      string       `json:"address"`
	PropertyType PropertyType `json:"propertyType"`
	Bedrooms     int          `json:"bedrooms"`
	Bathrooms    int          `json:"bathrooms"`
	Area         float64      `json:"area"`
	Images       []string     `json:"images"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (l Listing) Key() string { return l.ID }
