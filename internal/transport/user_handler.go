package transport

import (
	"errors"
	"net/http"
	"time"

	"kidney-story/internal/domain"
	"kidney-story/internal/middleware"
	"kidney-story/internal/repository"
	"kidney-story/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Role      string `json:"role" validate:"omitempty,oneof=patient caregiver"`
	City      string `json:"city" validate:"max=100"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token for refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	City      *string `json:"city" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type AdminUserRequest struct {
	Role     *string `json:"role" validate:"omitempty,role"`
	IsActive *bool   `json:"is_active"`
	IsBanned *bool   `json:"is_banned"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// UserProfile is the public view of an account.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	City      string    `json:"city"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

func profileOf(user *domain.User, withEmail bool) UserProfile {
	p := UserProfile{
		ID:        user.ID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		City:      user.City,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
	if withEmail {
		p.Email = user.Email
	}
	return p
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes mounts /auth.
func (h *UserHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/token/refresh", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(g.Auth)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Patch("/profile", h.UpdateProfile)
			r.Post("/change-password", h.ChangePassword)
			r.Get("/users/{id}", h.GetUser)
		})

		r.Route("/admin/users", func(r chi.Router) {
			r.Use(g.Auth, g.Admin)
			r.Get("/", h.ListUsers)
			r.Get("/{id}", h.AdminGetUser)
			r.Patch("/{id}", h.AdminUpdateUser)
			r.Delete("/{id}", h.DeactivateUser)
		})
	})
}

// respondAuthError maps token and credential failures to 401 and everything
// else through the domain taxonomy.
func (h *UserHandler) respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrInvalidToken):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, service.ErrTokenExpired):
		middleware.RespondWithError(w, http.StatusUnauthorized, "refresh token expired")
	default:
		middleware.RespondWithDomainError(w, r, h.logger, err)
	}
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		City:      req.City,
	})
	if err != nil {
		h.logger.Debug("Registration failed", zap.Error(err))
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User registered successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, profileOf(user, true))
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	accessToken, refreshToken, user, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))
		h.respondAuthError(w, r, err)
		return
	}

	h.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         profileOf(user, true),
	})
}

// Logout revokes the given refresh token.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	if err := h.userService.Logout(r.Context(), req.RefreshToken); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User logged out", zap.String("user_id", middleware.ActorFrom(r.Context()).UserID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Detail: "logged out successfully"})
}

// RefreshToken handles token refresh
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	newAccessToken, err := h.userService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Debug("Token refresh failed", zap.Error(err))
		h.respondAuthError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{AccessToken: newAccessToken})
}

// GetProfile returns the caller's own account.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUserByID(r.Context(), middleware.ActorFrom(r.Context()).UserID)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), middleware.ActorFrom(r.Context()).UserID, service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		City:      req.City,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	actor := middleware.ActorFrom(r.Context())
	if err := h.userService.ChangePassword(r.Context(), actor.UserID, req.OldPassword, req.NewPassword); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Password changed", zap.String("user_id", actor.UserID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Detail: "password updated successfully"})
}

// GetUser returns another member's public profile.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	user, err := h.userService.GetUserByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if !user.IsActive {
		middleware.RespondWithDomainError(w, r, h.logger, repository.ErrUserNotFound)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, profileOf(user, false))
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	isActive, err := queryBool(r, "is_active")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	isBanned, err := queryBool(r, "is_banned")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	page := pageFrom(r)
	users, total, err := h.userService.ListUsers(r.Context(), middleware.ActorFrom(r.Context()), repository.UserFilter{
		Role:     q.Get("role"),
		City:     q.Get("city"),
		IsActive: isActive,
		IsBanned: isBanned,
		Search:   q.Get("search"),
	}, page)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newPage(users, total, page))
}

func (h *UserHandler) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	user, err := h.userService.GetUserByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	var req AdminUserRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	actor := middleware.ActorFrom(r.Context())
	user, err := h.userService.AdminUpdateUser(r.Context(), actor, id, service.AdminUserUpdate{
		Role:     req.Role,
		IsActive: req.IsActive,
		IsBanned: req.IsBanned,
	})
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User updated by admin",
		zap.String("user_id", id.String()),
		zap.String("admin_id", actor.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	if err := h.userService.DeactivateUser(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
