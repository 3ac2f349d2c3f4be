package services

import (
	"context"
	"errors"

	"github.com/veristat/apiserver/internal/store"
	"github.com/veristat/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrDuplicateUsername is returned when registration hits an existing
// username (case-sensitive exact match).
var ErrDuplicateUsername = errors.New("username already exists")

// ErrInvalidCredentials is returned for both an unknown username and a
// wrong password; the two are indistinguishable to avoid username
// enumeration.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates credential use-cases: registration, password
// verification, lookup.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Create registers a new account. The raw password is hashed with bcrypt
// and never persisted or logged; registration always yields a non-admin,
// active account.
func (s *UserService) Create(ctx context.Context, username, password string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: string(hashed),
		IsActive:     true,
		IsAdmin:      false,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateUsername
		}
		return types.User{}, err
	}
	return user, nil
}

// Verify checks the password for the account. Unknown usernames and wrong
// passwords both come back as ErrInvalidCredentials with no distinguishing
// signal.
func (s *UserService) Verify(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Find returns the account for the username, or store.ErrNotFound.
func (s *UserService) Find(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}
