package models

import "time"

// User is a registered platform account. Password is write-only and never
// comes back from the backend.
type User struct {
	ID            string    `json:"_id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contactNumber"`
	Address       string    `json:"address"`
	Password      string    `json:"password,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u User) Key() string { return u.ID }

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Admin has the same shape as User with an implicit administrator role.
type Admin struct {
	User
}

func (a Admin) Key() string { return a.ID }
