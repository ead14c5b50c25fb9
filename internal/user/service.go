package user

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/OnellHernandez/studio/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials 邮箱或密码错误
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken 会话 Token 无效
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired 会话 Token 已过期
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidEmail 邮箱格式无效
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordTooShort 密码过短
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

// MinPasswordLength 密码最小长度
const MinPasswordLength = 8

// Session 登录成功后签发的会话
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Service 用户与会话业务逻辑层
type Service struct {
	repo   *Repository
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// NewService 创建 Service 实例
func NewService(repo *Repository, secret string, ttl time.Duration) *Service {
	return &Service{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// NormalizeEmail 去除空白并转为小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 注册新用户
func (s *Service) Register(email, password, displayName string) (*models.User, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	exists, err := s.repo.CheckEmailExists(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("生成密码哈希失败: %w", err)
	}

	u := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(displayName),
	}
	if err := s.repo.Create(u); err != nil {
		return nil, err
	}

	return u, nil
}

// Login 校验凭据并签发 JWT
func (s *Service) Login(email, password string) (*Session, error) {
	u, err := s.repo.FindByEmail(NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issueToken(u.ID)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

func (s *Service) issueToken(userID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("签发 Token 失败: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken 校验会话 Token，返回用户 ID
func (s *Service) ValidateToken(tokenValue string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenValue, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// GetUser 根据 ID 获取用户
func (s *Service) GetUser(id string) (*models.User, error) {
	return s.repo.FindByID(id)
}
