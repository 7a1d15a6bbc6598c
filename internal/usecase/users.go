package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

const minPasswordLength = 8

// ErrInvalidUser reports unusable account input.
var ErrInvalidUser = errors.New("invalid user")

// UserDeps wires account storage and token signing.
type UserDeps struct {
	Repository ports.UserRepository
	Tokens     ports.TokenIssuer
	Logger     *slog.Logger
	// Cost defaults to bcrypt.DefaultCost.
	Cost int
}

// UserService manages API accounts and logins.
type UserService struct {
	repo   ports.UserRepository
	tokens ports.TokenIssuer
	logger *slog.Logger
	cost   int
}

// NewUserService constructs the account use case.
func NewUserService(deps UserDeps) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cost := deps.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserService{
		repo:   deps.Repository,
		tokens: deps.Tokens,
		logger: logger.With("component", "users"),
		cost:   cost,
	}
}

// Login checks the credentials and returns a signed token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return token, nil
}

// CreateUser hashes the password and stores a new account.
func (s *UserService) CreateUser(ctx context.Context, email, password string, role domain.Role) (int64, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return 0, fmt.Errorf("%w: email %q", ErrInvalidUser, email)
	}
	if len(password) < minPasswordLength {
		return 0, fmt.Errorf("%w: password shorter than %d characters", ErrInvalidUser, minPasswordLength)
	}
	if role == "" {
		role = domain.RoleUser
	}
	if _, err := domain.ParseRole(string(role)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, domain.User{Email: email, PasswordHash: string(hash), Role: role})
	if err != nil {
		return 0, err
	}
	s.logger.Info("user created", "user_id", id, "role", role)
	return id, nil
}

// DeleteUser removes an account; requesters cannot remove their own.
func (s *UserService) DeleteUser(ctx context.Context, id, requesterID int64) error {
	if id == requesterID {
		return domain.ErrSelfDelete
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id, "by", requesterID)
	return nil
}

// FindUsers pages through accounts matching filter.
func (s *UserService) FindUsers(ctx context.Context, filter domain.UserFilter, page, pageSize int) (domain.UserPage, error) {
	page, pageSize = normalizePage(page, pageSize)
	result, err := s.repo.FindUsers(ctx, filter, page, pageSize)
	if err != nil {
		return domain.UserPage{}, fmt.Errorf("find users: %w", err)
	}
	if result.Items == nil {
		result.Items = []domain.User{}
	}
	return result, nil
}
