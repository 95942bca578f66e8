package model

import "time"

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column in the
// database.  Dietary restrictions live in the side table
// `user_dietary_restrictions` and are loaded as a deduplicated
// set of strings.  A user owns their recipes: deleting a user
// removes every recipe (and recipe step) they created.
//
// Fields:
//  ID                  – primary key identifier of the user.
//  Username            – unique login name, matched case-sensitively.
//  Email               – unique email address.
//  PasswordHash        – opaque credential supplied by the identity
//                        layer; the plaintext is never stored.
//  FirstName           – optional given name (nil when unset).
//  LastName            – optional family name (nil when unset).
//  DietaryRestrictions – unordered, deduplicated tag set.
//  CreatedAt           – stamped once at insert, never updated.
//  UpdatedAt           – restamped on every persisted change.
type User struct {
	ID                  uint64     // users.id
	Username            string     // users.username
	Email               string     // users.email
	PasswordHash        string     // users.password_hash
	FirstName           *string    // users.first_name (nullable)
	LastName            *string    // users.last_name (nullable)
	DietaryRestrictions []string   // user_dietary_restrictions.restriction
	CreatedAt           time.Time  // users.created_at
	UpdatedAt           time.Time  // users.updated_at
}
