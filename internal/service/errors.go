package service

import "errors"

// 业务层通用错误，handler 可根据错误类型映射到合适的 HTTP 状态码。
var (
	ErrInvalidUsername     = errors.New("invalid username")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrUsernameTaken       = errors.New("username taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRoomName     = errors.New("invalid room name")
	ErrInvalidRoomLink     = errors.New("invalid room link")
	ErrRoomNotFound        = errors.New("room not found")
	ErrInvalidRoomPassword = errors.New("invalid room password")
	ErrEmptyMessage        = errors.New("empty message")
	ErrEmptyFile           = errors.New("empty file")
	ErrFileNotFound        = errors.New("file not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrPermissionDenied    = errors.New("permission denied")
)
