package server

import (
	"net/http"
	"time"

	"linkchat/internal/admin"
	"linkchat/internal/auth"
	"linkchat/internal/config"
	"linkchat/internal/metrics"
	"linkchat/internal/mw"
	"linkchat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件与 REST API。
func SetupRouter(cfg config.Config, db *gorm.DB) *gin.Engine {
	h := NewHandler(
		cfg,
		service.NewUserService(db),
		service.NewRoomService(db),
		service.NewMessageService(db),
		service.NewFileService(db, cfg.UploadDir),
		admin.NewBrowser(db),
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.SecurityHeaders())
	r.Use(mw.CORS(cfg.Env))
	// 控制单个 IP+路由的速率，轮询客户端刷不爆。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)

	// 需要会话 token 的业务接口。
	authed := api.Group("")
	authed.Use(auth.Middleware(cfg, db))

	authed.POST("/rooms", h.CreateRoom)
	authed.GET("/rooms", h.ListRooms)
	authed.POST("/rooms/join", h.JoinRoom)
	authed.GET("/rooms/:link", h.GetRoom)
	authed.POST("/rooms/:link/messages", h.PostMessage)
	authed.GET("/rooms/:link/messages", h.ListMessages)
	authed.POST("/rooms/:link/files", limitBody(cfg.MaxUploadBytes()), h.UploadFile)
	authed.GET("/rooms/:link/files", h.ListFiles)
	authed.GET("/files/:id/download", h.DownloadFile)
	authed.DELETE("/files/:id", h.DeleteFile)

	adm := authed.Group("/admin")
	adm.Use(h.adminOnly)
	adm.GET("/tables", h.AdminTables)
	adm.GET("/tables/:name", h.AdminBrowse)

	return r
}

// limitBody 把请求体包进 MaxBytesReader，超限的 multipart 解析会得到 MaxBytesError。
func limitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}
