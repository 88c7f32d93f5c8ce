package models

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:20;not null"`
	PasswordHash string `gorm:"not null"`
	Salt         string `gorm:"not null"`
	CreatedAt    time.Time
}

// Room 的主键就是 16 位分享链接，链接同时充当房间标识和邀请凭证。
type Room struct {
	Link         string `gorm:"primaryKey;size:16"`
	Name         string `gorm:"size:30;not null"`
	PasswordHash string `gorm:"not null"`
	Salt         string `gorm:"not null"`
	CreatedBy    uint   `gorm:"not null"`
	CreatedAt    time.Time
}

type Message struct {
	ID        uint   `gorm:"primaryKey"`
	RoomLink  string `gorm:"index:idx_msg_room_link;size:16;not null"`
	UserID    uint   `gorm:"index;not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

type File struct {
	ID           uint   `gorm:"primaryKey"`
	RoomLink     string `gorm:"index:idx_file_room_link;size:16;not null"`
	UserID       uint   `gorm:"index;not null"`
	StoredName   string `gorm:"uniqueIndex;size:64;not null"`
	OriginalName string `gorm:"size:255;not null"`
	StoragePath  string `gorm:"not null"`
	Size         int64  `gorm:"not null"`
	Extension    string `gorm:"size:32"`
	CreatedAt    time.Time
}
