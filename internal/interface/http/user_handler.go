package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/crmgate/crmgate/internal/application"
	"github.com/crmgate/crmgate/internal/interface/middleware"
	"github.com/crmgate/crmgate/pkg/response"
	"github.com/crmgate/crmgate/pkg/validation"
)

const maxAvatarBytes = 5 << 20 // 5 MiB

type UserHandler struct {
	Svc    *app.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *app.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type updateProfileRequest struct {
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone"`
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
	Address *string `json:"address"`
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	user, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, app.ErrUserNotFound) {
			response.Error[any](c, http.StatusNotFound, "User not found", nil)
			return
		}
		h.Logger.WithError(err).Error("get profile failed")
		response.Error[any](c, http.StatusInternalServerError, "get profile failed", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(user), "profile", nil)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	uid := c.GetString(middleware.CtxUserID)
	user, err := h.Svc.UpdateProfile(c.Request.Context(), uid, app.UpdateProfileInput{
		Email:   req.Email,
		Phone:   req.Phone,
		Name:    req.Name,
		Surname: req.Surname,
		Address: req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUserNotFound):
			response.Error[any](c, http.StatusNotFound, "User not found", nil)
		case errors.Is(err, app.ErrEmailTaken):
			response.Error[any](c, http.StatusConflict, "Email already registered", nil)
		case errors.Is(err, app.ErrPhoneTaken):
			response.Error[any](c, http.StatusConflict, "Phone already registered", nil)
		default:
			h.Logger.WithError(err).Error("update profile failed")
			response.Error[any](c, http.StatusInternalServerError, "update profile failed", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(user), "profile updated", nil)
}

func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	if file.Size > maxAvatarBytes {
		response.Error[any](c, http.StatusBadRequest, "avatar exceeds 5 MiB", nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		h.Logger.WithError(err).Error("avatar open failed")
		response.Error[any](c, http.StatusInternalServerError, "avatar upload failed", nil)
		return
	}
	defer func() { _ = src.Close() }()

	uid := c.GetString(middleware.CtxUserID)
	user, err := h.Svc.UploadAvatar(c.Request.Context(), uid, file.Filename, file.Header.Get("Content-Type"), src)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUserNotFound):
			response.Error[any](c, http.StatusNotFound, "User not found", nil)
		case errors.Is(err, app.ErrStorageUnready):
			response.Error[any](c, http.StatusServiceUnavailable, "file storage is not available", nil)
		default:
			h.Logger.WithError(err).Error("avatar upload failed")
			response.Error[any](c, http.StatusInternalServerError, "avatar upload failed", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(user), "avatar uploaded", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	term := c.Query("q")
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	hits, err := h.Svc.SearchUsers(c.Request.Context(), term, size)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptySearchTerm):
			response.Error[any](c, http.StatusBadRequest, "search term is required", nil)
		case errors.Is(err, app.ErrSearchUnready):
			response.Error[any](c, http.StatusServiceUnavailable, "user search is not available", nil)
		default:
			h.Logger.WithError(err).Error("user search failed")
			response.Error[any](c, http.StatusInternalServerError, "user search failed", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)})
}
