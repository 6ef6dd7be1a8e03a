package users

import (
	"context"
	"fmt"
	"ms-registration/internal/auth"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type DBLayer interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type TokenIssuer interface {
	IssueToken(user models.User) (string, error)
}

type UserService struct {
	DB     DBLayer
	Tokens TokenIssuer
	Logger *logger.Logger
}

func NewUserService(db DBLayer, tokens TokenIssuer, log *logger.Logger) *UserService {
	return &UserService{DB: db, Tokens: tokens, Logger: log}
}

// Signup creates a regular user account with a bcrypt password hash.
func (s *UserService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.DB.CreateUser(ctx, &user); err != nil {
		return nil, err
	}

	s.Logger.LogDatabase("INSERT", "users", fmt.Sprintf("user %d registered", user.ID))
	return &user, nil
}

// Login verifies the password and issues an access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.DB.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if err == models.ErrNotFound {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.Tokens.IssueToken(*user)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Message:     "Login successful",
		UserID:      user.ID,
		Role:        user.Role,
		AccessToken: token,
	}, nil
}

var _ TokenIssuer = (*auth.Issuer)(nil)
