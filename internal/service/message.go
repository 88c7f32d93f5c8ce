package service

import (
	"html"
	"strings"
	"time"

	"linkchat/internal/models"

	"gorm.io/gorm"
)

const maxMessageRunes = 1000

// SanitizeMessage 截断到 1000 字符，HTML 转义，换行渲染为 <br>。
// 存储的就是转义后的形式，不保留原文（展示安全变换，不是编辑）。
func SanitizeMessage(text string) string {
	runes := []rune(text)
	if len(runes) > maxMessageRunes {
		text = string(runes[:maxMessageRunes])
	}
	text = html.EscapeString(text)
	return strings.ReplaceAll(text, "\n", "<br>")
}

// MessageService 封装消息发送与按游标拉取的业务逻辑。
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// MessageDTO 是对外输出的消息数据。
type MessageDTO struct {
	ID        uint      `json:"id"`
	RoomLink  string    `json:"room_link"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

// Post 校验房间后追加一条消息，返回消息 id。
func (s *MessageService) Post(roomLink string, userID uint, text string) (uint, error) {
	if !ValidRoomLink(roomLink) {
		return 0, ErrInvalidRoomLink
	}
	var count int64
	if err := s.db.Model(&models.Room{}).Where("link = ?", roomLink).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrRoomNotFound
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmptyMessage
	}
	msg := models.Message{RoomLink: roomLink, UserID: userID, Content: SanitizeMessage(text)}
	if err := s.db.Create(&msg).Error; err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// ListSince 返回 id 大于游标的全部消息，按 id 升序。
// id 单调且按插入顺序分配，等价于按时间升序并带确定的同刻次序。
// afterID 为 0 即首次加载整个房间历史。
func (s *MessageService) ListSince(roomLink string, afterID uint) ([]MessageDTO, error) {
	if !ValidRoomLink(roomLink) {
		return nil, ErrInvalidRoomLink
	}
	var count int64
	if err := s.db.Model(&models.Room{}).Where("link = ?", roomLink).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrRoomNotFound
	}
	var msgs []models.Message
	if err := s.db.Where("room_link = ? AND id > ?", roomLink, afterID).Order("id asc").Find(&msgs).Error; err != nil {
		return nil, err
	}

	usernames, err := s.resolveUsernames(msgs)
	if err != nil {
		return nil, err
	}

	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageDTO{
			ID:        m.ID,
			RoomLink:  m.RoomLink,
			UserID:    m.UserID,
			Username:  usernames[m.UserID],
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// resolveUsernames 批量获取消息涉及的用户名。
func (s *MessageService) resolveUsernames(msgs []models.Message) (map[uint]string, error) {
	seen := make(map[uint]struct{}, len(msgs))
	userIDs := make([]uint, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		userIDs = append(userIDs, m.UserID)
	}

	usernames := make(map[uint]string, len(userIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := s.db.Select("id", "username").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}
	return usernames, nil
}
