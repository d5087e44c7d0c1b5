package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/crmgate/crmgate/internal/application"
	"github.com/crmgate/crmgate/internal/domain/entity"
	"github.com/crmgate/crmgate/internal/interface/middleware"
	"github.com/crmgate/crmgate/pkg/response"
	"github.com/crmgate/crmgate/pkg/validation"
)

type AuthHandler struct {
	Auth   *app.AuthService
	Users  *app.UserService
	Logger *logrus.Logger
}

func NewAuthHandler(auth *app.AuthService, users *app.UserService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Users: users, Logger: logger}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,userpwd"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type userResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone,omitempty"`
	Name      string      `json:"name,omitempty"`
	Surname   string      `json:"surname,omitempty"`
	Address   string      `json:"address,omitempty"`
	AvatarURL string      `json:"avatar_url,omitempty"`
	Role      entity.Role `json:"role"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Phone:     u.Phone,
		Name:      u.Name,
		Surname:   u.Surname,
		Address:   u.Address,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	user, pair, err := h.Auth.Register(c.Request.Context(), app.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Name:     req.Name,
		Surname:  req.Surname,
	})
	if err != nil {
		if errors.Is(err, app.ErrEmailTaken) {
			response.Error[any](c, http.StatusConflict, "Email already registered", nil)
			return
		}
		h.Logger.WithError(err).Error("registration failed")
		response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		return
	}

	h.Users.IndexUser(user)
	response.Success(c, http.StatusCreated, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         toUserResponse(user),
	}, "registered", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	user, pair, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCredentials):
			response.Error[any](c, http.StatusUnauthorized, "Invalid credentials", nil)
		case errors.Is(err, app.ErrAccountDisabled):
			response.Error[any](c, http.StatusUnauthorized, "User account is disabled", nil)
		default:
			h.Logger.WithError(err).Error("login failed")
			response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         toUserResponse(user),
	}, "login successful", nil)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidRefreshToken):
			response.Error[any](c, http.StatusUnauthorized, "Invalid or expired refresh token", nil)
		case errors.Is(err, app.ErrAccountDisabled):
			response.Error[any](c, http.StatusUnauthorized, "User account is disabled", nil)
		default:
			h.Logger.WithError(err).Error("token refresh failed")
			response.Error[any](c, http.StatusInternalServerError, "token refresh failed", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "token refreshed", nil)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	if err := h.Auth.Logout(c.Request.Context(), uid); err != nil {
		h.Logger.WithError(err).Error("logout failed")
		response.Error[any](c, http.StatusInternalServerError, "logout failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"message": "Logged out successfully"}, "logged out", nil)
}

// Profile returns the identity attached by the request guard, without
// another database round trip.
func (h *AuthHandler) Profile(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"id":    c.GetString(middleware.CtxUserID),
		"email": c.GetString(middleware.CtxUserEmail),
		"role":  c.GetString(middleware.CtxUserRole),
	}, "profile", nil)
}

// AdminOnly exists to prove out role-guarded routing end to end.
func (h *AuthHandler) AdminOnly(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"message": "Welcome, admin",
		"email":   c.GetString(middleware.CtxUserEmail),
	}, "admin area", nil)
}
