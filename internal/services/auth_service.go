package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"jengamart/internal/models"
	"jengamart/internal/policy"
	"jengamart/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenPair is the credential bundle returned on register, login and invitation accept.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	FullName string
	Phone    string
	Email    string
	Password string
	Role     string
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Register creates a buyer or seller_admin account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, *TokenPair, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.FullName == "" || in.Phone == "" || in.Password == "" {
		return nil, nil, fmt.Errorf("missing fields: %w", ErrValidation)
	}

	exists, err := s.userRepo.ExistsByPhone(ctx, in.Phone)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, fmt.Errorf("phone already registered: %w", ErrConflict)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		FullName:     in.FullName,
		Phone:        in.Phone,
		Role:         policy.RegistrationRole(in.Role),
		KYCStatus:    "pending",
		IsActive:     true,
		PasswordHash: hash,
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		user.Email = &email
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fromRepo(err, "failed to register user")
	}

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// VerifyCredentials returns the active user owning phone when password matches.
func (s *AuthService) VerifyCredentials(ctx context.Context, phone, password string) (*models.User, error) {
	user, err := s.userRepo.GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login verifies the credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, phone, password string) (*models.User, *TokenPair, error) {
	user, err := s.VerifyCredentials(ctx, phone, password)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// IssueTokens signs a fresh access and refresh token for user.
func (s *AuthService) IssueTokens(user *models.User) (*TokenPair, error) {
	access, err := s.sign(user.ID, user.Role, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user.ID, user.Role, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) sign(userID string, role models.Role, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"typ":     typ,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// Refresh exchanges a refresh token for a new access token. The user is reloaded so a
// deactivated account cannot keep refreshing.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.ValidateToken(refreshToken)
	if err != nil {
		return "", err
	}
	if claims["typ"] != tokenTypeRefresh {
		return "", fmt.Errorf("not a refresh token: %w", ErrInvalidToken)
	}
	userID, _ := claims["user_id"].(string)
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return "", fmt.Errorf("unknown or inactive user: %w", ErrInvalidToken)
	}
	return s.sign(user.ID, user.Role, tokenTypeAccess, s.accessTTL)
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidToken)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// Authenticate resolves an access token into a Caller.
func (s *AuthService) Authenticate(tokenString string) (Caller, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return Caller{}, err
	}
	if claims["typ"] != tokenTypeAccess {
		return Caller{}, fmt.Errorf("not an access token: %w", ErrInvalidToken)
	}
	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || !models.Role(role).Valid() {
		return Caller{}, fmt.Errorf("malformed claims: %w", ErrInvalidToken)
	}
	return Caller{UserID: userID, Role: models.Role(role)}, nil
}
