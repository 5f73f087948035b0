package domain

import "time"

const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)

// User models a registered actor. Users are owned by the identity provider;
// the hub only ever reads their id and role.
type User struct {
	ID           int64     `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         string    `json:"role" bson:"role"`
	IsActive     bool      `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Identity is the authenticated principal behind a bearer credential.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

// ValidRole reports whether role is one a user may register with.
func ValidRole(role string) bool {
	return role == RoleClient || role == RoleFreelancer
}
