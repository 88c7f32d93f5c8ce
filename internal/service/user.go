package service

import (
	"errors"
	"regexp"

	"linkchat/internal/auth"
	"linkchat/internal/models"

	"gorm.io/gorm"
)

// 用户名 3-20 位，字母数字和下划线。
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

const minPasswordLen = 6

// UserService 封装用户注册与登录的业务逻辑。
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// RegisterResult 注册成功后返回的数据。
type RegisterResult struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Register 注册新用户。格式校验先于任何写入，重名返回 ErrUsernameTaken。
func (s *UserService) Register(username, password string) (*RegisterResult, error) {
	if !usernameRe.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < minPasswordLen {
		return nil, ErrInvalidPassword
	}
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, err
	}
	user := models.User{Username: username, PasswordHash: auth.HashPassword(password, salt), Salt: salt}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &RegisterResult{ID: user.ID, Username: user.Username}, nil
}

// Authenticate 校验用户名密码，返回用户记录。
// 用户不存在与密码错误统一返回 ErrInvalidCredentials，不泄露哪一项错了。
func (s *UserService) Authenticate(username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password, user.Salt) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
