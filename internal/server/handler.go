package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"linkchat/internal/admin"
	"linkchat/internal/auth"
	"linkchat/internal/config"
	"linkchat/internal/metrics"
	"linkchat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	cfg     config.Config
	userSvc *service.UserService
	roomSvc *service.RoomService
	msgSvc  *service.MessageService
	fileSvc *service.FileService
	browser *admin.Browser
}

func NewHandler(cfg config.Config, userSvc *service.UserService, roomSvc *service.RoomService, msgSvc *service.MessageService, fileSvc *service.FileService, browser *admin.Browser) *Handler {
	return &Handler{cfg: cfg, userSvc: userSvc, roomSvc: roomSvc, msgSvc: msgSvc, fileSvc: fileSvc, browser: browser}
}

func respErr(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func respOK(c *gin.Context, data gin.H) {
	out := gin.H{"success": true}
	for k, v := range data {
		out[k] = v
	}
	c.JSON(http.StatusOK, out)
}

// token 以当前配置签发会话 token。
func (h *Handler) token(userID uint, username string, rooms []string) (string, error) {
	return auth.GenerateSessionToken(userID, username, rooms, h.cfg.SessionSecret, h.cfg.SessionTTLHours)
}

// Register 处理用户注册请求，成功后视同登录并直接发 token。
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respErr(c, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	result, err := h.userSvc.Register(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsername):
			respErr(c, http.StatusBadRequest, "username must be 3-20 letters, digits or underscores")
		case errors.Is(err, service.ErrInvalidPassword):
			respErr(c, http.StatusBadRequest, "password must be at least 6 characters")
		case errors.Is(err, service.ErrUsernameTaken):
			respErr(c, http.StatusConflict, "username taken")
		default:
			log.Error().Err(err).Str("username", req.Username).Msg("register")
			respErr(c, http.StatusInternalServerError, "failed to create user")
		}
		return
	}
	token, err := h.token(result.ID, result.Username, nil)
	if err != nil {
		log.Error().Err(err).Uint("user_id", result.ID).Msg("register issue token")
		respErr(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	respOK(c, gin.H{"token": token, "user": gin.H{"id": result.ID, "username": result.Username}})
}

// Login 处理用户登录请求。
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respErr(c, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respErr(c, http.StatusBadRequest, "invalid payload")
		return
	}
	user, err := h.userSvc.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respErr(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("login")
		respErr(c, http.StatusInternalServerError, "login failed")
		return
	}
	token, err := h.token(user.ID, user.Username, nil)
	if err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("login issue token")
		respErr(c, http.StatusInternalServerError, "login failed")
		return
	}
	respOK(c, gin.H{"token": token, "user": gin.H{"id": user.ID, "username": user.Username}})
}

// Logout 无状态会话下只需客户端丢弃 token，端点保留给前端统一调用。
func (h *Handler) Logout(c *gin.Context) {
	respOK(c, nil)
}

// CreateRoom 创建房间并把新链接并入会话，创建者无需再输一遍口令。
func (h *Handler) CreateRoom(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respErr(c, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	claims := auth.GetClaims(c)
	room, err := h.roomSvc.Create(req.Name, req.Password, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRoomName):
			respErr(c, http.StatusBadRequest, "room name must be 3-30 characters")
		case errors.Is(err, service.ErrInvalidPassword):
			respErr(c, http.StatusBadRequest, "password must be at least 6 characters")
		default:
			log.Error().Err(err).Uint("user_id", claims.UserID).Str("name", req.Name).Msg("create room")
			respErr(c, http.StatusInternalServerError, "failed to create room")
		}
		return
	}
	token, err := h.token(claims.UserID, claims.Username, appendRoom(claims.Rooms, room.Link))
	if err != nil {
		log.Error().Err(err).Uint("user_id", claims.UserID).Msg("create room issue token")
		respErr(c, http.StatusInternalServerError, "failed to create room")
		return
	}
	log.Info().Uint("user_id", claims.UserID).Str("room_link", room.Link).Msg("room created")
	respOK(c, gin.H{"token": token, "room": gin.H{"link": room.Link, "name": room.Name}})
}

// ListRooms 返回房间列表，供面板展示。
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.roomSvc.List(100)
	if err != nil {
		log.Error().Err(err).Msg("list rooms")
		respErr(c, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	respOK(c, gin.H{"rooms": rooms})
}

// JoinRoom 校验房间口令，成功后把链接并入会话并重新签发 token。重复加入是幂等的。
func (h *Handler) JoinRoom(c *gin.Context) {
	var req struct {
		Link     string `json:"room_link"`
		Password string `json:"room_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respErr(c, http.StatusBadRequest, "invalid payload")
		return
	}
	req.Link = strings.TrimSpace(req.Link)
	claims := auth.GetClaims(c)
	room, err := h.roomSvc.Join(req.Link, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRoomLink):
			respErr(c, http.StatusBadRequest, "invalid room link format")
		case errors.Is(err, service.ErrRoomNotFound):
			respErr(c, http.StatusNotFound, "room not found")
		case errors.Is(err, service.ErrInvalidRoomPassword):
			respErr(c, http.StatusUnauthorized, "invalid room link or password")
		default:
			log.Error().Err(err).Str("room_link", req.Link).Msg("join room")
			respErr(c, http.StatusInternalServerError, "failed to join room")
		}
		return
	}
	token, err := h.token(claims.UserID, claims.Username, appendRoom(claims.Rooms, room.Link))
	if err != nil {
		log.Error().Err(err).Uint("user_id", claims.UserID).Msg("join room issue token")
		respErr(c, http.StatusInternalServerError, "failed to join room")
		return
	}
	log.Info().Uint("user_id", claims.UserID).Str("room_link", room.Link).Msg("room joined")
	respOK(c, gin.H{"token": token, "room": gin.H{"link": room.Link, "name": room.Name}})
}

// GetRoom 返回已加入房间的信息。
func (h *Handler) GetRoom(c *gin.Context) {
	link := c.Param("link")
	if !h.requireJoined(c, link) {
		return
	}
	room, err := h.roomSvc.Get(link)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) || errors.Is(err, service.ErrInvalidRoomLink) {
			respErr(c, http.StatusNotFound, "room not found")
			return
		}
		log.Error().Err(err).Str("room_link", link).Msg("get room")
		respErr(c, http.StatusInternalServerError, "failed to load room")
		return
	}
	respOK(c, gin.H{"room": gin.H{
		"link":       room.Link,
		"name":       room.Name,
		"created_by": room.CreatedBy,
		"created_at": room.CreatedAt,
	}})
}

// PostMessage 向房间追加一条消息。
func (h *Handler) PostMessage(c *gin.Context) {
	link := c.Param("link")
	if !h.requireJoined(c, link) {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respErr(c, http.StatusBadRequest, "invalid payload")
		return
	}
	claims := auth.GetClaims(c)
	id, err := h.msgSvc.Post(link, claims.UserID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRoomLink):
			respErr(c, http.StatusBadRequest, "invalid room link")
		case errors.Is(err, service.ErrRoomNotFound):
			respErr(c, http.StatusNotFound, "room not found")
		case errors.Is(err, service.ErrEmptyMessage):
			respErr(c, http.StatusBadRequest, "message cannot be empty")
		default:
			log.Error().Err(err).Str("room_link", link).Msg("post message")
			respErr(c, http.StatusInternalServerError, "failed to send message")
		}
		return
	}
	metrics.MessagesTotal.Inc()
	respOK(c, gin.H{"id": id})
}

// ListMessages 按游标返回新消息，after_id=0 即全量历史，客户端定时轮询。
func (h *Handler) ListMessages(c *gin.Context) {
	link := c.Param("link")
	if !h.requireJoined(c, link) {
		return
	}
	afterID := 0
	if v := c.Query("after_id"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respErr(c, http.StatusBadRequest, "invalid after_id")
			return
		}
		afterID = parsed
	}
	msgs, err := h.msgSvc.ListSince(link, uint(afterID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRoomLink):
			respErr(c, http.StatusBadRequest, "invalid room link")
		case errors.Is(err, service.ErrRoomNotFound):
			respErr(c, http.StatusNotFound, "room not found")
		default:
			log.Error().Err(err).Str("room_link", link).Msg("list messages")
			respErr(c, http.StatusInternalServerError, "failed to list messages")
		}
		return
	}
	metrics.PollsTotal.Inc()
	respOK(c, gin.H{"messages": msgs})
}

// UploadFile 接收 multipart 附件。大小上限在路由层用 MaxBytesReader 兜住。
func (h *Handler) UploadFile(c *gin.Context) {
	link := c.Param("link")
	if !h.requireJoined(c, link) {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respErr(c, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		respErr(c, http.StatusBadRequest, "no file part")
		return
	}
	src, err := fh.Open()
	if err != nil {
		respErr(c, http.StatusBadRequest, "unreadable file part")
		return
	}
	defer src.Close()

	claims := auth.GetClaims(c)
	dto, err := h.fileSvc.Upload(link, claims.UserID, fh.Filename, src)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRoomLink):
			respErr(c, http.StatusBadRequest, "invalid room link")
		case errors.Is(err, service.ErrRoomNotFound):
			respErr(c, http.StatusNotFound, "room not found")
		case errors.Is(err, service.ErrEmptyFile):
			respErr(c, http.StatusBadRequest, "no selected file")
		default:
			log.Error().Err(err).Str("room_link", link).Str("filename", fh.Filename).Msg("upload file")
			respErr(c, http.StatusInternalServerError, "file upload failed")
		}
		return
	}
	metrics.UploadsTotal.Inc()
	log.Info().Uint("user_id", claims.UserID).Str("room_link", link).Str("filename", dto.OriginalName).Msg("file uploaded")
	respOK(c, gin.H{"file": dto})
}

// ListFiles 返回房间附件列表，按上传时间倒序。
func (h *Handler) ListFiles(c *gin.Context) {
	link := c.Param("link")
	if !h.requireJoined(c, link) {
		return
	}
	out, err := h.fileSvc.List(link)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRoomLink):
			respErr(c, http.StatusBadRequest, "invalid room link")
		case errors.Is(err, service.ErrRoomNotFound):
			respErr(c, http.StatusNotFound, "room not found")
		default:
			log.Error().Err(err).Str("room_link", link).Msg("list files")
			respErr(c, http.StatusInternalServerError, "failed to list files")
		}
		return
	}
	respOK(c, gin.H{"files": out})
}

// DownloadFile 以附件形式回传文件内容，仅限已加入文件所在房间的会话。
func (h *Handler) DownloadFile(c *gin.Context) {
	fileID, err := strconv.Atoi(c.Param("id"))
	if err != nil || fileID <= 0 {
		respErr(c, http.StatusBadRequest, "invalid file id")
		return
	}
	rec, err := h.fileSvc.Open(uint(fileID))
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			respErr(c, http.StatusNotFound, "file not found")
			return
		}
		log.Error().Err(err).Int("file_id", fileID).Msg("download file")
		respErr(c, http.StatusInternalServerError, "download failed")
		return
	}
	if err := roomAccess(c, rec.RoomLink); errors.Is(err, service.ErrAccessDenied) {
		respErr(c, http.StatusForbidden, "access denied")
		return
	}
	c.FileAttachment(rec.StoragePath, rec.OriginalName)
}

// DeleteFile 删除附件，仅上传者或房主可删。
func (h *Handler) DeleteFile(c *gin.Context) {
	fileID, err := strconv.Atoi(c.Param("id"))
	if err != nil || fileID <= 0 {
		respErr(c, http.StatusBadRequest, "invalid file id")
		return
	}
	claims := auth.GetClaims(c)
	if err := h.fileSvc.Delete(uint(fileID), claims.UserID); err != nil {
		switch {
		case errors.Is(err, service.ErrFileNotFound):
			respErr(c, http.StatusNotFound, "file not found")
		case errors.Is(err, service.ErrPermissionDenied):
			respErr(c, http.StatusForbidden, "permission denied")
		default:
			log.Error().Err(err).Int("file_id", fileID).Msg("delete file")
			respErr(c, http.StatusInternalServerError, "delete failed")
		}
		return
	}
	log.Info().Uint("user_id", claims.UserID).Int("file_id", fileID).Msg("file deleted")
	respOK(c, nil)
}

// AdminTables 返回白名单表概览。
func (h *Handler) AdminTables(c *gin.Context) {
	tables, err := h.browser.Tables()
	if err != nil {
		log.Error().Err(err).Msg("admin tables")
		respErr(c, http.StatusInternalServerError, "failed to inspect tables")
		return
	}
	respOK(c, gin.H{"tables": tables})
}

// AdminBrowse 分页浏览一张白名单表。
func (h *Handler) AdminBrowse(c *gin.Context) {
	table := c.Param("name")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	cols, err := h.browser.Columns(table)
	if err != nil {
		respErr(c, http.StatusNotFound, "unknown table")
		return
	}
	rows, err := h.browser.Browse(table, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("table", table).Msg("admin browse")
		respErr(c, http.StatusInternalServerError, "failed to browse table")
		return
	}
	respOK(c, gin.H{"columns": cols, "rows": rows})
}

// roomAccess 确认会话已加入指定房间，未加入时返回 ErrAccessDenied。
func roomAccess(c *gin.Context, link string) error {
	claims := auth.GetClaims(c)
	if claims == nil || !claims.Joined(link) {
		return service.ErrAccessDenied
	}
	return nil
}

// requireJoined 校验链接格式并确认会话已加入该房间，否则写出错误响应。
func (h *Handler) requireJoined(c *gin.Context, link string) bool {
	if !service.ValidRoomLink(link) {
		respErr(c, http.StatusBadRequest, "invalid room link format")
		return false
	}
	if err := roomAccess(c, link); errors.Is(err, service.ErrAccessDenied) {
		respErr(c, http.StatusForbidden, "access denied")
		return false
	}
	return true
}

// adminOnly 只放行管理账号：配置了 ADMIN_USER 按用户名匹配，否则回落到首个注册用户。
func (h *Handler) adminOnly(c *gin.Context) {
	claims := auth.GetClaims(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return
	}
	if h.cfg.AdminUser != "" {
		if claims.Username != h.cfg.AdminUser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "admin only"})
			return
		}
	} else if claims.UserID != 1 {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "admin only"})
		return
	}
	c.Next()
}

// appendRoom 幂等地把链接并入已加入集合。
func appendRoom(rooms []string, link string) []string {
	for _, r := range rooms {
		if r == link {
			return rooms
		}
	}
	out := make([]string, 0, len(rooms)+1)
	out = append(out, rooms...)
	return append(out, link)
}
