package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/repository"
	"github.com/iliyamo/event-slot-booking/internal/utils"
)

// RoleAdmin is the role claim carried by admin access tokens.
const RoleAdmin = "ADMIN"

// Auth implements AuthService over the admins table.
type Auth struct {
	admins     repository.AdminRepository
	jwtSecret  string
	ttlMin     int
	bcryptCost int
}

// NewAuth wires an auth service. ttlMin is the access token lifetime in
// minutes; bcryptCost is used when seeding admin accounts.
func NewAuth(admins repository.AdminRepository, jwtSecret string, ttlMin, bcryptCost int) *Auth {
	return &Auth{admins: admins, jwtSecret: jwtSecret, ttlMin: ttlMin, bcryptCost: bcryptCost}
}

// Login verifies an admin's credentials and mints an access token.
// Unknown email and wrong password both come back as
// ErrInvalidCredentials.
func (s *Auth) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrAdminNotFound) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, err
	}
	if !utils.VerifyPassword(admin.PasswordHash, password) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	tok, err := utils.NewAccessToken(s.jwtSecret, admin.ID, RoleAdmin, s.ttlMin)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok.Token, tok.Exp, nil
}

// EnsureAdmin seeds an operator account when none exists for the given
// email. An existing account is left untouched, so the seed variables
// can stay set across restarts without overwriting a rotated password.
func (s *Auth) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := s.admins.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrAdminNotFound) {
		return err
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.admins.Create(ctx, &model.Admin{Email: email, PasswordHash: hash})
}
