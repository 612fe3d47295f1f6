package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/threaded-comments-api/internal/config"
	"github.com/threaded-comments-api/internal/models"
	"github.com/threaded-comments-api/internal/repository"
	"github.com/threaded-comments-api/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// Claims are the access token claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// authService is the concrete implementation of AuthService
type authService struct {
	users      repository.UserRepository
	validator  *validation.Validator
	secret     []byte
	tokenTTL   time.Duration
	principals *expirable.LRU[string, models.Principal]
	now        func() time.Time
	log        zerolog.Logger
}

// newAuthService creates a new AuthService
func newAuthService(users repository.UserRepository, validator *validation.Validator, cfg config.AuthConfig, now func() time.Time, log zerolog.Logger) *authService {
	return &authService{
		users:      users,
		validator:  validator,
		secret:     []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL,
		principals: expirable.NewLRU[string, models.Principal](cfg.PrincipalCacheSize, nil, cfg.PrincipalCacheTTL),
		now:        now,
		log:        log.With().Str("service", "auth").Logger(),
	}
}

// Register creates an account with a bcrypt password hash
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if errs := s.validator.ValidateRegistration(req); len(errs) > 0 {
		return nil, &Error{Kind: ErrInvalidInput, Message: errs[0].Message, Details: errs}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "username or email already taken")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return user, nil
}

// Login exchanges credentials for an access token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user.Principal(),
	}, nil
}

// IssueToken signs an HS256 access token for user
func (s *authService) IssueToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Authenticate verifies a bearer token and resolves its subject to a principal
func (s *authService) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Principal{}, newError(ErrUnauthorized, "token expired")
		}
		return models.Principal{}, newError(ErrUnauthorized, "invalid token")
	}

	principal, err := s.lookup(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Principal{}, newError(ErrUnauthorized, "unknown user")
		}
		return models.Principal{}, err
	}
	return principal, nil
}

// GetUser returns the public identity of a user
func (s *authService) GetUser(ctx context.Context, id string) (models.Principal, error) {
	return s.lookup(ctx, id)
}

// lookup resolves a user id through the principal cache
func (s *authService) lookup(ctx context.Context, id string) (models.Principal, error) {
	if principal, ok := s.principals.Get(id); ok {
		return principal, nil
	}
	if !validation.IsValidUUID(id) {
		return models.Principal{}, newError(ErrNotFound, "user with ID %s not found", id)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.Principal{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return models.Principal{}, newError(ErrNotFound, "user with ID %s not found", id)
	}

	principal := user.Principal()
	s.principals.Add(id, principal)
	return principal, nil
}
