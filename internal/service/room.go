package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"
	"unicode/utf8"

	"linkchat/internal/auth"
	"linkchat/internal/models"

	"gorm.io/gorm"
)

// 房间链接恰好 16 位字母数字。
var roomLinkRe = regexp.MustCompile(`^[A-Za-z0-9]{16}$`)

const (
	linkAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	linkLength   = 16
	// 62^16 的空间里碰撞几乎不可能，重试上限只是兜底。
	linkMaxRetries = 5
)

// ValidRoomLink 校验链接格式，供各层在查库前短路非法输入。
func ValidRoomLink(link string) bool {
	return roomLinkRe.MatchString(link)
}

// GenerateRoomLink 生成 16 位随机字母数字链接。
func GenerateRoomLink() (string, error) {
	b := make([]byte, linkLength)
	max := big.NewInt(int64(len(linkAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = linkAlphabet[n.Int64()]
	}
	return string(b), nil
}

// RoomService 封装房间创建、加入与查询的业务逻辑。
type RoomService struct {
	db *gorm.DB
	// genLink 默认为 GenerateRoomLink，测试可替换以构造固定链接。
	genLink func() (string, error)
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{db: db, genLink: GenerateRoomLink}
}

// RoomDTO 是对外输出的房间数据。
type RoomDTO struct {
	Link      string    `json:"link"`
	Name      string    `json:"name"`
	CreatedBy uint      `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Create 创建新房间，链接碰撞时重新生成。
func (s *RoomService) Create(name, password string, creator uint) (*RoomDTO, error) {
	if n := utf8.RuneCountInString(name); n < 3 || n > 30 {
		return nil, ErrInvalidRoomName
	}
	if len(password) < minPasswordLen {
		return nil, ErrInvalidPassword
	}
	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, err
	}
	for i := 0; i < linkMaxRetries; i++ {
		link, err := s.genLink()
		if err != nil {
			return nil, err
		}
		var count int64
		if err := s.db.Model(&models.Room{}).Where("link = ?", link).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}
		room := models.Room{
			Link:         link,
			Name:         name,
			PasswordHash: auth.HashPassword(password, salt),
			Salt:         salt,
			CreatedBy:    creator,
		}
		if err := s.db.Create(&room).Error; err != nil {
			return nil, err
		}
		return &RoomDTO{Link: room.Link, Name: room.Name, CreatedBy: room.CreatedBy, CreatedAt: room.CreatedAt}, nil
	}
	return nil, fmt.Errorf("room link generation: %d collisions in a row", linkMaxRetries)
}

// Join 校验链接与房间密码。加入本身不落库，会话的已加入集合由调用方维护。
func (s *RoomService) Join(link, password string) (*models.Room, error) {
	if !ValidRoomLink(link) {
		return nil, ErrInvalidRoomLink
	}
	var room models.Room
	if err := s.db.Where("link = ?", link).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if !auth.VerifyPassword(room.PasswordHash, password, room.Salt) {
		return nil, ErrInvalidRoomPassword
	}
	return &room, nil
}

// Get 按链接查询房间。
func (s *RoomService) Get(link string) (*models.Room, error) {
	if !ValidRoomLink(link) {
		return nil, ErrInvalidRoomLink
	}
	var room models.Room
	if err := s.db.Where("link = ?", link).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// List 返回房间列表，供面板展示。
func (s *RoomService) List(limit int) ([]RoomDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var rooms []models.Room
	if err := s.db.Order("created_at desc").Limit(limit).Find(&rooms).Error; err != nil {
		return nil, err
	}
	out := make([]RoomDTO, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomDTO{Link: r.Link, Name: r.Name, CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt})
	}
	return out, nil
}
