package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// Default token lifetimes, used when TokenConfig leaves them zero
	AccessTokenExpiration  = 15 * time.Minute
	RefreshTokenExpiration = 7 * 24 * time.Hour

	MinPasswordLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrAccountInactive    = fmt.Errorf("%w: account is inactive", domain.ErrPermission)
	ErrWrongPassword      = fmt.Errorf("%w: current password is incorrect", domain.ErrValidation)
)

// TokenConfig holds the JWT signing secret and token lifetimes.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// RegisterInput carries the fields of a new account. Role defaults to
// patient; admins cannot be self-registered.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	City      string
}

// ProfileUpdate changes the caller's own profile. Nil fields are left as is.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	City      *string
	AvatarURL *string
}

// AdminUserUpdate is what an admin may change on any account.
type AdminUserUpdate struct {
	Role     *string
	IsActive *bool
	IsBanned *bool
}

// UserService defines the interface for user business logic
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *domain.User, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*domain.User, error)
	// ChangePassword also revokes every refresh token of the user.
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error

	ListUsers(ctx context.Context, actor domain.Actor, f repository.UserFilter, page repository.Page) ([]*domain.User, int, error)
	AdminUpdateUser(ctx context.Context, actor domain.Actor, userID uuid.UUID, in AdminUserUpdate) (*domain.User, error)
	// DeactivateUser marks the account inactive instead of deleting it.
	DeactivateUser(ctx context.Context, actor domain.Actor, userID uuid.UUID) error
}

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the caller identity carried by the token.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{UserID: c.UserID, Role: c.Role}
}

type userService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	tokens           TokenConfig
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	tokens TokenConfig,
) UserService {
	if tokens.AccessTTL <= 0 {
		tokens.AccessTTL = AccessTokenExpiration
	}
	if tokens.RefreshTTL <= 0 {
		tokens.RefreshTTL = RefreshTokenExpiration
	}
	return &userService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
	}
}

// Register creates a new user account with hashed password
func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, domain.Invalid("email", "is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, domain.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = domain.RolePatient
	}
	if role != domain.RolePatient && role != domain.RoleCaregiver {
		return nil, domain.Invalid("role", "must be patient or caregiver")
	}

	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, repository.ErrUserAlreadyExists
	}

	hashedPassword, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		City:         strings.TrimSpace(in.City),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user and returns JWT tokens
func (s *userService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *domain.User, err error) {
	user, err = s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}
	if err := checkAccount(user); err != nil {
		return "", "", nil, err
	}

	accessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = s.generateRefreshToken(ctx, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

func checkAccount(user *domain.User) error {
	if user.IsBanned {
		return domain.ErrBanned
	}
	if !user.IsActive {
		return ErrAccountInactive
	}
	return nil
}

// Logout invalidates the refresh token
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			// Token doesn't exist, consider it already logged out
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken generates a new access token using a valid refresh token
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken string, err error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if err := checkAccount(user); err != nil {
		return "", err
	}

	newAccessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return newAccessToken, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.tokens.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.City != nil {
		user.City = strings.TrimSpace(*in.City)
	}
	if in.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return domain.Invalid("new_password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.verifyPassword(user.PasswordHash, oldPassword); err != nil {
		return ErrWrongPassword
	}

	hashed, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hashed); err != nil {
		return err
	}
	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

func (s *userService) ListUsers(ctx context.Context, actor domain.Actor, f repository.UserFilter, page repository.Page) ([]*domain.User, int, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.userRepo.List(ctx, f, page)
}

func (s *userService) AdminUpdateUser(ctx context.Context, actor domain.Actor, userID uuid.UUID, in AdminUserUpdate) (*domain.User, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*in.Role))
		if !domain.ValidRole(role) {
			return nil, domain.Invalid("role", "must be admin, patient or caregiver")
		}
		user.Role = role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.IsBanned != nil {
		user.IsBanned = *in.IsBanned
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if user.IsBanned || !user.IsActive {
		if err := s.refreshTokenRepo.RevokeAllForUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to revoke refresh tokens: %w", err)
		}
	}
	return user, nil
}

func (s *userService) DeactivateUser(ctx context.Context, actor domain.Actor, userID uuid.UUID) error {
	inactive := false
	_, err := s.AdminUpdateUser(ctx, actor, userID, AdminUserUpdate{IsActive: &inactive})
	return err
}

func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateAccessToken generates a JWT access token with user ID and role claims
func (s *userService) generateAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokens.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.tokens.Secret))
}

// generateRefreshToken generates a refresh token and stores it in the database
func (s *userService) generateRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	tokenString := uuid.New().String()

	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: time.Now().Add(s.tokens.RefreshTTL),
		CreatedAt: time.Now(),
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return tokenString, nil
}
