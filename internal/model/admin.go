package model

import "time"

// Admin is an operator account used to guard the administrative
// endpoints (manual cancellation, job triggers).  Visitors never have
// accounts; only admins authenticate.
type Admin struct {
    ID           uint64    // admins.id
    Email        string    // admins.email
    PasswordHash string    // admins.password_hash (bcrypt)
    CreatedAt    time.Time // admins.created_at
}
