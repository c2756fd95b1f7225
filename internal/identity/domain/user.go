package domain

import (
	"github.com/google/uuid"
)

// Address is a delivery address belonging to a user.
type Address struct {
	ID         uuid.UUID
	Line1      string
	City       string
	PostalCode string
}

// User is the read-only view of a customer consumed by the order and
// subscription handlers. Account management lives outside this core.
type User struct {
	id        uuid.UUID
	email     string
	fullName  string
	addresses []Address
}

// RehydrateUser recreates a user from persisted state.
func RehydrateUser(id uuid.UUID, email, fullName string, addresses []Address) *User {
	return &User{
		id:        id,
		email:     email,
		fullName:  fullName,
		addresses: addresses,
	}
}

func (u *User) ID() uuid.UUID        { return u.id }
func (u *User) Email() string        { return u.email }
func (u *User) FullName() string     { return u.fullName }
func (u *User) Addresses() []Address { return u.addresses }

// HasAddress reports whether the given address belongs to this user.
func (u *User) HasAddress(addressID uuid.UUID) bool {
	for _, addr := range u.addresses {
		if addr.ID == addressID {
			return true
		}
	}
	return false
}
