package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/musterapp/muster/internal/domain"
	"github.com/musterapp/muster/internal/store"
	"github.com/musterapp/muster/pkg/cryptox"
	"github.com/musterapp/muster/pkg/idx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserExists         = errors.New("user_already_exists")
	ErrInsecurePassword   = errors.New("insecure_password")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidDisplayName = errors.New("invalid_display_name")
)

const (
	minPasswordLength = 10
	minUsernameLength = 3
	maxUsernameLength = 32
)

// UserService handles registration and credential verification. All failures
// here abort before any token issuance or cache mutation happens.
type UserService struct {
	Store store.Store
}

// Register validates the credentials and creates the user. The password is
// only ever persisted as an argon2id hash.
func (s *UserService) Register(ctx context.Context, username, password, displayName string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return domain.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
	}
	if u.DisplayName == "" {
		u.DisplayName = username
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, err
	}

	return u, nil
}

// Authenticate verifies a username/password pair and returns the user.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	return u, nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// UpdateDisplayName changes a user's display name and returns the updated
// user.
func (s *UserService) UpdateDisplayName(ctx context.Context, userID, displayName string) (domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return domain.User{}, ErrInvalidDisplayName
	}

	if err := s.Store.Users().UpdateDisplayName(ctx, userID, displayName); err != nil {
		return domain.User{}, err
	}
	return s.Store.Users().GetUserByID(ctx, userID)
}

// DeleteAccount removes the user. Refresh tokens and owned events go with it
// via schema cascades; the caller is responsible for revoking live sessions
// first.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	return s.Store.Users().DeleteUser(ctx, userID)
}

func validateUsername(username string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return ErrInvalidUsername
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '.' {
			return ErrInvalidUsername
		}
	}
	return nil
}

// validatePassword rejects insecure credentials before any store or cache
// mutation occurs: minimum length plus at least one letter and one digit.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrInsecurePassword
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrInsecurePassword
	}
	return nil
}
