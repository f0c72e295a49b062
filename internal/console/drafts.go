package console

import (
	"strconv"
	"strings"

	"housingadmin/console/internal/models"
	"housingadmin/console/internal/storage"
	"housingadmin/console/internal/validation"
)

const requiredMsg = "This field is required"

func withRequired(errs validation.FieldErrors, field string) validation.FieldErrors {
	if errs == nil {
		errs = validation.FieldErrors{}
	}
	errs.Add(field, requiredMsg)
	return errs
}

// UserDraft backs the signup and edit user forms.
type UserDraft struct {
	FirstName       string `json:"firstName" form:"firstName" validate:"required"`
	LastName        string `json:"lastName" form:"lastName" validate:"required"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	ContactNumber   string `json:"contactNumber" form:"contactNumber" validate:"required,phone"`
	Address         string `json:"address" form:"address" validate:"required"`
	Password        string `json:"password" form:"password" validate:"omitempty,min=6"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"eqfield=Password"`
}

func UserDraftFrom(u models.User) UserDraft {
	return UserDraft{
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		ContactNumber: u.ContactNumber,
		Address:       u.Address,
	}
}

func (d UserDraft) trimmed() UserDraft {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.TrimSpace(d.Email)
	d.ContactNumber = strings.TrimSpace(d.ContactNumber)
	d.Address = strings.TrimSpace(d.Address)
	return d
}

// Validate requires a password only when creating.
func (d UserDraft) Validate(v *validation.Validator, editing bool) validation.FieldErrors {
	d = d.trimmed()
	errs := v.Struct(d)
	if !editing && d.Password == "" {
		errs = withRequired(errs, "password")
	}
	return errs.OrNil()
}

func (d UserDraft) Payload(editing bool) map[string]any {
	d = d.trimmed()
	p := map[string]any{
		"firstName":     d.FirstName,
		"lastName":      d.LastName,
		"email":         d.Email,
		"contactNumber": d.ContactNumber,
		"address":       d.Address,
	}
	if d.Password != "" {
		p["password"] = d.Password
	}
	return p
}

// AdminDraft is the own-profile form. Passwords change through PasswordDraft.
type AdminDraft struct {
	FirstName     string `json:"firstName" form:"firstName" validate:"required"`
	LastName      string `json:"lastName" form:"lastName" validate:"required"`
	Email         string `json:"email" form:"email" validate:"required,email"`
	ContactNumber string `json:"contactNumber" form:"contactNumber" validate:"omitempty,phone"`
	Address       string `json:"address" form:"address"`
}

func AdminDraftFrom(a models.Admin) AdminDraft {
	return AdminDraft{
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Email:         a.Email,
		ContactNumber: a.ContactNumber,
		Address:       a.Address,
	}
}

func (d AdminDraft) Validate(v *validation.Validator, _ bool) validation.FieldErrors {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.TrimSpace(d.Email)
	d.ContactNumber = strings.TrimSpace(d.ContactNumber)
	return v.Struct(d).OrNil()
}

func (d AdminDraft) Payload(bool) map[string]any {
	return map[string]any{
		"firstName":     strings.TrimSpace(d.FirstName),
		"lastName":      strings.TrimSpace(d.LastName),
		"email":         strings.TrimSpace(d.Email),
		"contactNumber": strings.TrimSpace(d.ContactNumber),
		"address":       strings.TrimSpace(d.Address),
	}
}

// PasswordDraft changes an admin's password.
type PasswordDraft struct {
	Password        string `json:"password" form:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,eqfield=Password"`
}

func (d PasswordDraft) Validate(v *validation.Validator, _ bool) validation.FieldErrors {
	return v.Struct(d).OrNil()
}

func (d PasswordDraft) Payload(bool) map[string]any {
	return map[string]any{"password": d.Password}
}

// PropertyDraft backs the registration form. Numeric inputs that may be
// left blank are kept as strings until the payload is built.
type PropertyDraft struct {
	UserID       string  `json:"userId" form:"userId" validate:"required"`
	PropertyType string  `json:"propertyType" form:"propertyType" validate:"required,oneof=House Apartment Villa Land Commercial"`
	Address      string  `json:"address" form:"address" validate:"required"`
	Latitude     string  `json:"lat" form:"lat" validate:"omitempty,latitude"`
	Longitude    string  `json:"lng" form:"lng" validate:"omitempty,longitude"`
	Bedrooms     int     `json:"bedrooms" form:"bedrooms" validate:"gte=0"`
	Bathrooms    int     `json:"bathrooms" form:"bathrooms" validate:"gte=0"`
	Area         float64 `json:"area" form:"area" validate:"gt=0"`
	YearBuilt    string  `json:"yearBuilt" form:"yearBuilt" validate:"omitempty,numeric,len=4"`
	Description  string  `json:"description" form:"description"`
	// Amenities is the comma separated text input.
	Amenities string `json:"amenities" form:"amenities"`

	Photos []models.Photo  `json:"-" form:"-"`
	Files  []storage.File `json:"-" form:"-"`
}

func PropertyDraftFrom(p models.Property) PropertyDraft {
	d := PropertyDraft{
		UserID:       p.UserID,
		PropertyType: string(p.PropertyType),
		Address:      p.Address,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		Area:         p.Area,
		Description:  p.Description,
		Amenities:    strings.Join(p.Amenities, ", "),
		Photos:       append([]models.Photo(nil), p.Photos...),
	}
	if p.Latitude != nil {
		d.Latitude = formatCoord(*p.Latitude)
	}
	if p.Longitude != nil {
		d.Longitude = formatCoord(*p.Longitude)
	}
	if p.YearBuilt != nil {
		d.YearBuilt = strconv.Itoa(*p.YearBuilt)
	}
	return d
}

func (d PropertyDraft) Validate(v *validation.Validator, _ bool) validation.FieldErrors {
	d.UserID = strings.TrimSpace(d.UserID)
	d.Address = strings.TrimSpace(d.Address)
	d.Latitude = strings.TrimSpace(d.Latitude)
	d.Longitude = strings.TrimSpace(d.Longitude)
	d.YearBuilt = strings.TrimSpace(d.YearBuilt)
	errs := v.Struct(d)
	if (d.Latitude == "") != (d.Longitude == "") {
		if d.Latitude == "" {
			errs = withRequired(errs, "lat")
		} else {
			errs = withRequired(errs, "lng")
		}
	}
	return errs.OrNil()
}

// HasLocation reports whether both coordinates were entered.
func (d PropertyDraft) HasLocation() bool {
	return strings.TrimSpace(d.Latitude) != "" && strings.TrimSpace(d.Longitude) != ""
}

// New registrations always start Pending; status changes go through the
// management tab only.
func (d PropertyDraft) Payload(editing bool) map[string]any {
	p := map[string]any{
		"userId":       strings.TrimSpace(d.UserID),
		"propertyType": d.PropertyType,
		"address":      strings.TrimSpace(d.Address),
		"bedrooms":     d.Bedrooms,
		"bathrooms":    d.Bathrooms,
		"area":         d.Area,
		"description":  strings.TrimSpace(d.Description),
		"amenities":    SplitAmenities(d.Amenities),
		"photos":       photosOrEmpty(d.Photos),
	}
	if lat, err := strconv.ParseFloat(strings.TrimSpace(d.Latitude), 64); err == nil {
		p["lat"] = lat
	}
	if lng, err := strconv.ParseFloat(strings.TrimSpace(d.Longitude), 64); err == nil {
		p["lng"] = lng
	}
	if year, err := strconv.Atoi(strings.TrimSpace(d.YearBuilt)); err == nil {
		p["yearBuilt"] = year
	}
	if !editing {
		p["status"] = string(models.StatusPending)
	}
	return p
}

func photosOrEmpty(photos []models.Photo) []models.Photo {
	if photos == nil {
		return []models.Photo{}
	}
	return photos
}

// SplitAmenities turns "pool, garage,pool" into ["pool", "garage"].
func SplitAmenities(s string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		a := strings.TrimSpace(part)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// ListingDraft backs the house listing form.
type ListingDraft struct {
	UserID       string  `json:"userId" form:"userId"`
	Title        string  `json:"title" form:"title" validate:"required"`
	Description  string  `json:"description" form:"description" validate:"required"`
	Price        float64 `json:"price" form:"price" validate:"gt=0"`
	Address      string  `json:"address" form:"address" validate:"required"`
	PropertyType string  `json:"propertyType" form:"propertyType" validate:"required,oneof=House Apartment Villa Land Commercial"`
	Bedrooms     int     `json:"bedrooms" form:"bedrooms" validate:"gte=0"`
	Bathrooms    int     `json:"bathrooms" form:"bathrooms" validate:"gte=0"`
	Area         float64 `json:"area" form:"area" validate:"gte=0"`

	Images []string       `json:"-" form:"-"`
	Files  []storage.File `json:"-" form:"-"`
}

func ListingDraftFrom(l models.Listing) ListingDraft {
	return ListingDraft{
		UserID:       l.UserID,
		Title:        l.Title,
		Description:  l.Description,
		Price:        l.Price,
		Address:      l.Address,
		PropertyType: string(l.PropertyType),
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		Area:         l.Area,
		Images:       append([]string(nil), l.Images...),
	}
}

func (d ListingDraft) Validate(v *validation.Validator, _ bool) validation.FieldErrors {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Address = strings.TrimSpace(d.Address)
	return v.Struct(d).OrNil()
}

func (d ListingDraft) Payload(bool) map[string]any {
	images := d.Images
	if images == nil {
		images = []string{}
	}
	p := map[string]any{
		"title":        strings.TrimSpace(d.Title),
		"description":  strings.TrimSpace(d.Description),
		"price":        d.Price,
		"address":      strings.TrimSpace(d.Address),
		"propertyType": d.PropertyType,
		"bedrooms":     d.Bedrooms,
		"bathrooms":    d.Bathrooms,
		"area":         d.Area,
		"images":       images,
	}
	if id := strings.TrimSpace(d.UserID); id != "" {
		p["userId"] = id
	}
	return p
}

// ReportDraft backs the report upload form. A new report needs a file.
type ReportDraft struct {
	Title       string `json:"title" form:"title" validate:"required"`
	Description string `json:"description" form:"description"`
	UserID      string `json:"userId" form:"userId" validate:"required"`

	Document models.Document `json:"-" form:"-"`
	File     *storage.File   `json:"-" form:"-"`
}

func ReportDraftFrom(r models.Report) ReportDraft {
	return ReportDraft{
		Title:       r.Title,
		Description: r.Description,
		UserID:      r.UserID,
		Document:    r.Document,
	}
}

func (d ReportDraft) Validate(v *validation.Validator, editing bool) validation.FieldErrors {
	d.Title = strings.TrimSpace(d.Title)
	d.UserID = strings.TrimSpace(d.UserID)
	errs := v.Struct(d)
	if !editing && d.File == nil && d.Document.URL == "" {
		errs = withRequired(errs, "document")
	}
	return errs.OrNil()
}

func (d ReportDraft) Payload(bool) map[string]any {
	p := map[string]any{
		"title":       strings.TrimSpace(d.Title),
		"description": strings.TrimSpace(d.Description),
		"userId":      strings.TrimSpace(d.UserID),
	}
	if d.Document.URL != "" {
		p["document"] = d.Document
	}
	return p
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
