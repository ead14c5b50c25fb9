package user

import (
	"time"

	"github.com/OnellHernandez/studio/internal/models"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserDTO 用户数据传输对象
type UserDTO struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionDTO 登录返回的会话
type SessionDTO struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *UserDTO  `json:"user"`
}

// ToUserDTO 将 User 模型转换为 DTO
func ToUserDTO(u *models.User) *UserDTO {
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

// ToSessionDTO 将会话转换为 DTO
func ToSessionDTO(s *Session) *SessionDTO {
	return &SessionDTO{
		Token:     s.Token,
		TokenType: "Bearer",
		ExpiresAt: s.ExpiresAt,
		User:      ToUserDTO(s.User),
	}
}
