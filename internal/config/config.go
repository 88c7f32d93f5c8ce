package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Port            string
	DatabasePath    string
	UploadDir       string
	SessionSecret   string
	Env             string
	SessionTTLHours int
	MaxUploadMB     int64
	AdminUser       string
	TLSCertFile     string
	TLSKeyFile      string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func Load() Config {
	port := getenv("APP_PORT", "8080")
	dbPath := getenv("DATABASE_PATH", "chat.db")
	uploadDir := getenv("UPLOAD_DIR", "uploads")
	secret := getenv("SESSION_SECRET", "dev-secret-change-me")
	env := getenv("APP_ENV", "dev")
	ttlStr := getenv("SESSION_TTL_HOURS", "24")
	maxUploadStr := getenv("MAX_UPLOAD_MB", "100")
	ttl, err := strconv.Atoi(ttlStr)
	if err != nil {
		ttl = 24
	}
	maxUpload, _ := strconv.ParseInt(maxUploadStr, 10, 64)
	return Config{
		Port:            port,
		DatabasePath:    dbPath,
		UploadDir:       uploadDir,
		SessionSecret:   secret,
		Env:             env,
		SessionTTLHours: ttl,
		MaxUploadMB:     maxUpload,
		AdminUser:       getenv("ADMIN_USER", ""),
		TLSCertFile:     getenv("TLS_CERT_FILE", ""),
		TLSKeyFile:      getenv("TLS_KEY_FILE", ""),
	}
}

// MaxUploadBytes 返回上传大小上限（字节）。
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Validate 检查启动必需项，生产环境禁止使用默认密钥。
func Validate(c Config) error {
	if c.Port == "" {
		return errors.New("config: port is required")
	}
	if c.DatabasePath == "" {
		return errors.New("config: database path is required")
	}
	if c.Env != "dev" && c.SessionSecret == "dev-secret-change-me" {
		return errors.New("config: default session secret not allowed outside dev")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("config: max upload size must be positive")
	}
	if c.SessionTTLHours <= 0 {
		return errors.New("config: session ttl must be positive")
	}
	return nil
}
