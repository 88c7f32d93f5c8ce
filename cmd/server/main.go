package main

import (
	"os"

	"linkchat/internal/config"
	"linkchat/internal/db"
	clog "linkchat/internal/log"
	"linkchat/internal/server"

	"github.com/rs/zerolog/log"
)

func main() {
	// main 函数负责加载配置、初始化日志、打开数据库并启动 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("create upload dir")
	}

	gdb, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	r := server.SetupRouter(cfg, gdb)

	// 配置了证书对就走 TLS，否则明文监听。
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		log.Info().Str("port", cfg.Port).Msg("listening with TLS")
		if err := r.RunTLS(":"+cfg.Port, cfg.TLSCertFile, cfg.TLSKeyFile); err != nil {
			log.Fatal().Err(err).Msg("server run")
		}
		return
	}
	log.Info().Str("port", cfg.Port).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
