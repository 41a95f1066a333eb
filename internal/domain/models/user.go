// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a pharmacy, marketing agent, or company account.
//
// LinkedMachines holds pharmacy IDs for marketing users and marketing IDs
// for company users. It is empty for pharmacies.
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	FullName       string               `bson:"full_name" json:"name"`
	FullNameCI     string               `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email          string               `bson:"email" json:"email"`
	Role           string               `bson:"role" json:"role"` // pharmacy | marketing | company
	Status         string               `bson:"status,omitempty" json:"status,omitempty"`
	LinkedMachines []primitive.ObjectID `bson:"linked_machines,omitempty" json:"linked_machines,omitempty"`
	PasswordHash   string               `bson:"password_hash,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsDisabled reports whether the account has been switched off.
func (u User) IsDisabled() bool {
	return u.Status == StatusDisabled
}
