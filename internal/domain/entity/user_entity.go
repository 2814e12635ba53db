package entity

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// User is the aggregate root for the user directory.
// ID is zero until the store assigns one.
type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	BirthDate   civil.Date `json:"birthDate"`
	Address     string     `json:"address"`
	PhoneNumber string     `json:"phoneNumber"`
}

// MergeFrom copies every mutable field of in onto u, keeping u.ID.
func (u *User) MergeFrom(in User) {
	u.Email = in.Email
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.BirthDate = in.BirthDate
	u.Address = in.Address
	u.PhoneNumber = in.PhoneNumber
}

func (u User) String() string {
	return fmt.Sprintf("id=%d email=%q firstName=%q lastName=%q birthDate=%s address=%q phoneNumber=%q",
		u.ID, u.Email, u.FirstName, u.LastName, u.BirthDate, u.Address, u.PhoneNumber)
}

// Users renders one user per line.
type Users []User

func (us Users) String() string {
	var b strings.Builder
	for i, u := range us {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(u.String())
	}
	return b.String()
}
