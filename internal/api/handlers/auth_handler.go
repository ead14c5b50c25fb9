package handlers

import (
	"errors"
	"net/http"

	"github.com/OnellHernandez/studio/internal/api/middleware"
	"github.com/OnellHernandez/studio/internal/logs"
	"github.com/OnellHernandez/studio/internal/user"
	"github.com/gin-gonic/gin"
)

// AuthHandler 用户注册与登录 HTTP 处理器
type AuthHandler struct {
	service *user.Service
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(service *user.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register 注册用户
// @Summary 注册用户
// @Tags auth
// @Accept json
// @Produce json
// @Param body body user.RegisterRequest true "注册信息"
// @Success 201 {object} user.UserDTO
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid request parameters", err.Error())
		return
	}

	u, err := h.service.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailExists):
			respondError(c, http.StatusConflict, CodeEmailConflict, "Email already registered", nil)
		case errors.Is(err, user.ErrInvalidEmail), errors.Is(err, user.ErrPasswordTooShort):
			respondError(c, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		default:
			logs.Logger.WithError(err).Error("注册用户失败")
			respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to register user", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, user.ToUserDTO(u))
}

// Login 登录并签发会话 Token
// @Summary 登录
// @Tags auth
// @Accept json
// @Produce json
// @Param body body user.LoginRequest true "登录凭据"
// @Success 200 {object} user.SessionDTO
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid request parameters", err.Error())
		return
	}

	session, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password", nil)
			return
		}
		logs.Logger.WithError(err).Error("登录失败")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to login", nil)
		return
	}

	c.JSON(http.StatusOK, user.ToSessionDTO(session))
}

// Me 获取当前用户
// @Summary 当前用户
// @Tags auth
// @Produce json
// @Success 200 {object} user.UserDTO
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.service.GetUser(middleware.UserID(c))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "User not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to get user", nil)
		return
	}

	c.JSON(http.StatusOK, user.ToUserDTO(u))
}
