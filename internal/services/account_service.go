package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"lancebill-backend/internal/auth"
	"lancebill-backend/internal/cache"
	"lancebill-backend/internal/models"
	"lancebill-backend/internal/repositories"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AccountService struct {
	accounts   *repositories.AccountRepository
	jwtManager *auth.JWTManager
}

func NewAccountService(accounts *repositories.AccountRepository, jwtManager *auth.JWTManager) *AccountService {
	return &AccountService{accounts: accounts, jwtManager: jwtManager}
}

// Signup registers an account. The free-plan subscription is created in the
// same transaction by the repository.
func (s *AccountService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrValidation)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateToken(account)
	if err != nil {
		return nil, err
	}

	log.Printf("[Auth] Account %d registered (%s)", account.ID, account.Email)
	return &models.AuthResponse{Token: token, Account: account}, nil
}

// Login verifies credentials and issues a token. A Redis hit skips the
// bcrypt comparison, which dominates login latency.
func (s *AccountService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	if accountID, ok := cache.GetCachedAuth(ctx, email, req.Password); ok {
		account, err := s.accounts.Get(ctx, int(accountID))
		if err == nil {
			token, err := s.jwtManager.GenerateToken(account)
			if err != nil {
				return nil, err
			}
			return &models.AuthResponse{Token: token, Account: account}, nil
		}
		cache.InvalidateAuth(ctx, email, req.Password)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(account.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	cache.CacheAuth(ctx, email, req.Password, int64(account.ID))

	token, err := s.jwtManager.GenerateToken(account)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, Account: account}, nil
}
