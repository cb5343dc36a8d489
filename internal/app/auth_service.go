package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"savora/internal/model"
	"savora/internal/pkg/jwtutil"
	"savora/internal/repository"
)

const (
	msgBadCredentials  = "Username or password is wrong"
	msgEmailTaken      = "Email is already registered"
	msgUsernameTaken   = "Username is already taken"
	msgNoTokenProvided = "Access denied, no token provided"
	msgInvalidToken    = "Invalid token"
)

type AuthService struct {
	users         repository.UserStore
	jwtSecret     string
	jwtExpiration time.Duration
	bcryptCost    int
	log           logrus.FieldLogger
}

type RegisterInput struct {
	Username string `validate:"required,min=6,max=255"`
	Email    string `validate:"required,email,min=6,max=255"`
	Password string `validate:"required,min=6,max=20"`
}

type LoginInput struct {
	Username string `validate:"required,min=6,max=255"`
	Password string `validate:"required,min=6,max=20"`
}

type AuthResult struct {
	Token string
	User  *model.User
}

// Identity is the caller recovered from a verified session token.
type Identity struct {
	UserID   string
	Username string
	Email    string
}

func NewAuthService(users repository.UserStore, jwtSecret string, jwtExpiration time.Duration, bcryptCost int, log logrus.FieldLogger) *AuthService {
	if jwtExpiration <= 0 {
		jwtExpiration = 2 * time.Hour
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:         users,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		bcryptCost:    bcryptCost,
		log:           log,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	existingByEmail, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, newError(ErrConflict, msgEmailTaken)
	}

	existingByName, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, newError(ErrConflict, msgUsernameTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, s.duplicateError(ctx, input.Email)
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	return user, nil
}

// Login answers with the same message whether the username is unknown or the
// password is wrong.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, newError(ErrInvalidCredential, msgBadCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, newError(ErrInvalidCredential, msgBadCredentials)
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) VerifyToken(token string) (*Identity, error) {
	claims, err := jwtutil.ParseToken(s.jwtSecret, token)
	if err != nil {
		if errors.Is(err, jwtutil.ErrMissingToken) {
			return nil, newError(ErrUnauthorized, msgNoTokenProvided)
		}
		return nil, newError(ErrUnauthorized, msgInvalidToken)
	}
	return &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

func (s *AuthService) duplicateError(ctx context.Context, email string) error {
	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return newError(ErrConflict, msgEmailTaken)
	}
	return newError(ErrConflict, msgUsernameTaken)
}
