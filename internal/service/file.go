package service

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"linkchat/internal/files"
	"linkchat/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 原始文件名只保留安全字符，其余替换为下划线。
var unsafeFilenameRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename 去掉路径部分并过滤不安全字符。
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	return name
}

// FileService 封装房间附件的上传、下载、列表与删除。
type FileService struct {
	db        *gorm.DB
	uploadDir string
}

func NewFileService(db *gorm.DB, uploadDir string) *FileService {
	return &FileService{db: db, uploadDir: uploadDir}
}

// FileDTO 是对外输出的附件数据。
type FileDTO struct {
	ID            uint      `json:"id"`
	RoomLink      string    `json:"room_link"`
	UserID        uint      `json:"user_id"`
	Username      string    `json:"username"`
	OriginalName  string    `json:"original_filename"`
	Size          int64     `json:"file_size"`
	Extension     string    `json:"file_type"`
	UploadDate    time.Time `json:"upload_date"`
	Icon          string    `json:"icon"`
	SizeFormatted string    `json:"size_formatted"`
}

// Upload 先落盘再写元数据。存储名用 UUID 加原始扩展名，避免碰撞。
// 元数据写失败时磁盘上会留下孤儿文件，这是已知缺口，不做自动回滚。
func (s *FileService) Upload(roomLink string, userID uint, originalName string, r io.Reader) (*FileDTO, error) {
	if !ValidRoomLink(roomLink) {
		return nil, ErrInvalidRoomLink
	}
	if strings.TrimSpace(originalName) == "" {
		return nil, ErrEmptyFile
	}
	var count int64
	if err := s.db.Model(&models.Room{}).Where("link = ?", roomLink).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrRoomNotFound
	}

	sanitized := SanitizeFilename(originalName)
	if sanitized == "" {
		sanitized = "file"
	}
	ext := strings.ToLower(filepath.Ext(sanitized))
	stored := uuid.NewString() + ext
	path := filepath.Join(s.uploadDir, stored)

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, err
	}
	dst, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	rec := models.File{
		RoomLink:     roomLink,
		UserID:       userID,
		StoredName:   stored,
		OriginalName: sanitized,
		StoragePath:  path,
		Size:         size,
		Extension:    ext,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return nil, err
	}
	dto := s.toDTO(rec, "")
	return &dto, nil
}

// List 返回房间附件列表，按上传时间倒序。
func (s *FileService) List(roomLink string) ([]FileDTO, error) {
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
	var recs []models.File
	if err := s.db.Where("room_link = ?", roomLink).Order("created_at desc, id desc").Find(&recs).Error; err != nil {
		return nil, err
	}

	usernames, err := s.resolveUsernames(recs)
	if err != nil {
		return nil, err
	}
	out := make([]FileDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.toDTO(rec, usernames[rec.UserID]))
	}
	return out, nil
}

// Open 按 id 打开附件用于下载，元数据或磁盘文件缺失都算 ErrFileNotFound。
// 调用方负责对会话的已加入集合做访问控制。
func (s *FileService) Open(fileID uint) (*models.File, error) {
	var rec models.File
	if err := s.db.First(&rec, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if _, err := os.Stat(rec.StoragePath); err != nil {
		return nil, ErrFileNotFound
	}
	return &rec, nil
}

// Delete 仅上传者或房主可删。先删磁盘文件再删元数据，
// 磁盘删除失败时保留记录，避免悬空引用。
func (s *FileService) Delete(fileID, userID uint) error {
	var rec models.File
	if err := s.db.First(&rec, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return err
	}
	var room models.Room
	if err := s.db.Where("link = ?", rec.RoomLink).First(&room).Error; err != nil {
		return err
	}
	if rec.UserID != userID && room.CreatedBy != userID {
		return ErrPermissionDenied
	}
	if err := os.Remove(rec.StoragePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return s.db.Delete(&models.File{}, fileID).Error
}

func (s *FileService) toDTO(rec models.File, username string) FileDTO {
	return FileDTO{
		ID:            rec.ID,
		RoomLink:      rec.RoomLink,
		UserID:        rec.UserID,
		Username:      username,
		OriginalName:  rec.OriginalName,
		Size:          rec.Size,
		Extension:     rec.Extension,
		UploadDate:    rec.CreatedAt,
		Icon:          files.Icon(rec.OriginalName),
		SizeFormatted: files.SizeHuman(rec.Size),
	}
}

func (s *FileService) resolveUsernames(recs []models.File) (map[uint]string, error) {
	seen := make(map[uint]struct{}, len(recs))
	userIDs := make([]uint, 0, len(recs))
	for _, rec := range recs {
		if _, ok := seen[rec.UserID]; ok {
			continue
		}
		seen[rec.UserID] = struct{}{}
		userIDs = append(userIDs, rec.UserID)
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
