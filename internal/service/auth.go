// Package service holds the business rules of the remote log: who may
// register and what may be appended.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidLogin is returned for a login that is not an identity public id.
var ErrInvalidLogin = errors.New("login must be a 64 character hex public id")

// AuthorRepository defines the persistence operations
// required by the authentication service.
type AuthorRepository interface {
	// AuthorExists returns true if an author with the given login exists.
	AuthorExists(ctx context.Context, login string) (bool, error)
	// RegisterAuthor creates a new author with the given login.
	RegisterAuthor(ctx context.Context, login string) error
}

// AuthService registers and looks up authors.
type AuthService struct {
	repo     AuthorRepository
	validate *validator.Validate
}

// NewAuthService constructs a new AuthService using the provided repository.
func NewAuthService(repo AuthorRepository) *AuthService {
	return &AuthService{repo: repo, validate: validator.New()}
}

// AuthorExists checks whether an author with the specified login exists.
func (s *AuthService) AuthorExists(ctx context.Context, login string) (bool, error) {
	return s.repo.AuthorExists(ctx, login)
}

// RegisterAuthor registers login after checking it looks like a public id.
func (s *AuthService) RegisterAuthor(ctx context.Context, login string) error {
	if err := s.validate.Var(login, "required,hexadecimal,len=64"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogin, err)
	}
	return s.repo.RegisterAuthor(ctx, login)
}
