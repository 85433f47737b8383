package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"varshgpt/internal/kv"
	"varshgpt/internal/models"
	"varshgpt/internal/orchestrator"
	"varshgpt/internal/service/conversation"
	"varshgpt/internal/speech"
)

// Sender runs one full message turn. *orchestrator.Orchestrator is the
// production implementation.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string, fileIDs []int64) (*orchestrator.SendResult, error)
}

// Handler wires HTTP routes to the conversation store and the send pipeline.
type Handler struct {
	conv      *conversation.Service
	sender    Sender
	voice     *speech.Controller
	dictation *speech.Dictation
	prefs     *kv.Preferences
	fileBase  string
	fileTTL   time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(conv *conversation.Service, sender Sender, voice *speech.Controller, dictation *speech.Dictation, prefs *kv.Preferences, fileBase string, fileTTL time.Duration) *Handler {
	return &Handler{
		conv:      conv,
		sender:    sender,
		voice:     voice,
		dictation: dictation,
		prefs:     prefs,
		fileBase:  fileBase,
		fileTTL:   fileTTL,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/chats", h.listChats)
	api.POST("/chats", h.createChat)
	api.DELETE("/chats", h.clearChats)
	api.GET("/chats/:chat_id", h.getChat)
	api.PATCH("/chats/:chat_id", h.updateChat)
	api.DELETE("/chats/:chat_id", h.deleteChat)
	api.POST("/messages", h.sendMessage)
	api.POST("/uploads", h.filesUpload)
	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.putSettings)
	api.GET("/preferences", h.getPreferences)
	api.PUT("/preferences", h.putPreferences)
	api.GET("/dictation", h.getDictation)
	api.POST("/dictation/start", h.startDictation)
	api.POST("/dictation/stop", h.stopDictation)
}

func (h *Handler) listChats(c *gin.Context) {
	chats, err := h.conv.ListChats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if chats == nil {
		chats = make([]models.Chat, 0)
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

type createChatRequest struct {
	Title string `json:"title"`
	Mode  string `json:"mode"`
	Model string `json:"model"`
}

func (h *Handler) createChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Mode == "" {
		req.Mode = string(models.ModeAptitude)
	}
	if req.Model == "" {
		req.Model = string(models.ModelGemini)
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	model, err := models.ParseModel(req.Model)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New Conversation"
	}
	chat, err := h.conv.CreateChat(c.Request.Context(), title, mode, model)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (h *Handler) getChat(c *gin.Context) {
	chat, err := h.conv.GetChat(c.Request.Context(), c.Param("chat_id"))
	if err != nil {
		if errors.Is(err, conversation.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chat)
}

type updateChatRequest struct {
	Title *string `json:"title"`
	Mode  *string `json:"mode"`
	Model *string `json:"model"`
}

func (h *Handler) updateChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	var req updateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()
	if req.Mode != nil || req.Model != nil {
		chat, err := h.conv.GetChat(ctx, chatID)
		if err != nil {
			if errors.Is(err, conversation.ErrChatNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		mode, model := chat.Mode, chat.Model
		if req.Mode != nil {
			parsed, err := models.ParseMode(*req.Mode)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			mode = parsed
		}
		if req.Model != nil {
			parsed, err := models.ParseModel(*req.Model)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			model = parsed
		}
		if err := h.conv.UpdateModeModel(ctx, chatID, mode, model); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
			return
		}
		if err := h.conv.UpdateTitle(ctx, chatID, title); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	if err := h.conv.DeleteChat(c.Request.Context(), chatID); err != nil {
		if errors.Is(err, conversation.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.prefs != nil && h.prefs.LastChatID(c.Request.Context()) == chatID {
		_ = h.prefs.SetLastChatID(c.Request.Context(), "")
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) clearChats(c *gin.Context) {
	if err := h.conv.ClearChats(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.prefs != nil {
		_ = h.prefs.SetLastChatID(c.Request.Context(), "")
	}
	c.Status(http.StatusNoContent)
}

type sendMessageRequest struct {
	ChatID  string  `json:"chat_id"`
	Content string  `json:"content"`
	FileIDs []int64 `json:"file_ids"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" && len(req.FileIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content or file_ids is required"})
		return
	}
	result, err := h.sender.SendMessage(c.Request.Context(), req.ChatID, req.Content, req.FileIDs)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrBusy):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		case errors.Is(err, conversation.ErrChatNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

const (
	maxUploadBytes = 10 << 20 // 10 MB
	storageLimit   = 50 << 20 // 50 MB total
)

var allowedContentTypes = []string{
	"text/plain",
	"text/markdown",
	"application/pdf",
	"application/json",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/",
}

func isAllowedContentType(ct string) bool {
	for _, allowed := range allowedContentTypes {
		if strings.HasPrefix(ct, allowed) {
			return true
		}
	}
	return false
}

func (h *Handler) filesUpload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	// chat_id may be empty: uploads can precede the chat they end up in.
	chatID := strings.TrimSpace(c.PostForm("chat_id"))
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	usage, err := h.conv.TempStorageUsage(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "calculate usage failed"})
		return
	}
	if usage+file.Size > storageLimit {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "storage quota exceeded"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	_ = f.Close()
	contentType := http.DetectContentType(buf[:n])
	if !isAllowedContentType(contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}
	filename := filepath.Base(file.Filename)
	destDir, destPath, finalName := h.getUniqueFilePath(chatID, filename)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create directory failed"})
		return
	}
	if err := c.SaveUploadedFile(file, destPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save file failed"})
		return
	}
	fileID, err := h.conv.RecordTempFile(c.Request.Context(), chatID, finalName, destPath, contentType, file.Size, h.fileTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record file failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"file_id":   fileID,
		"file_name": finalName,
		"size":      file.Size,
		"mime":      contentType,
		"used":      usage + file.Size,
		"limit":     storageLimit,
	})
}

func (h *Handler) getFilePath(chatID, filename string) (string, string) {
	bucket := chatID
	if bucket == "" {
		bucket = "pending"
	}
	destDir := filepath.Join(h.fileBase, bucket)
	destPath := filepath.Join(destDir, filename)
	return destDir, destPath
}

func (h *Handler) getUniqueFilePath(chatID, filename string) (string, string, string) {
	destDir, destPath := h.getFilePath(chatID, filename)
	if _, err := os.Stat(destPath); os.IsNotExist(err) {
		return destDir, destPath, filename
	}
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	for idx := 1; idx <= 1000; idx++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, idx, ext)
		dir, path := h.getFilePath(chatID, candidate)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return dir, path, candidate
		}
	}
	fallback := fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext)
	return destDir, filepath.Join(destDir, fallback), fallback
}

func (h *Handler) getSettings(c *gin.Context) {
	settings, err := h.conv.LoadSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings.Masked())
}

func (h *Handler) putSettings(c *gin.Context) {
	var req models.AppSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()
	// Masked values round-tripped from getSettings keep the stored key.
	current, err := h.conv.LoadSettings(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if strings.HasPrefix(req.OpenAI, "****") {
		req.OpenAI = current.OpenAI
	}
	if strings.HasPrefix(req.DeepSeek, "****") {
		req.DeepSeek = current.DeepSeek
	}
	if err := h.conv.SaveSettings(ctx, &req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type preferencesResponse struct {
	Theme      string `json:"theme"`
	TTSEnabled bool   `json:"tts_enabled"`
	LastChatID string `json:"last_chat_id"`
}

func (h *Handler) getPreferences(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, preferencesResponse{
		Theme:      h.prefs.Theme(ctx),
		TTSEnabled: h.prefs.TTSEnabled(ctx),
		LastChatID: h.prefs.LastChatID(ctx),
	})
}

type preferencesRequest struct {
	Theme      *string `json:"theme"`
	TTSEnabled *bool   `json:"tts_enabled"`
}

func (h *Handler) putPreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()
	if req.Theme != nil {
		theme := *req.Theme
		if theme != "dark" && theme != "light" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be dark or light"})
			return
		}
		if err := h.prefs.SetTheme(ctx, theme); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.TTSEnabled != nil {
		if err := h.prefs.SetTTSEnabled(ctx, *req.TTSEnabled); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if h.voice != nil {
			h.voice.SetEnabled(*req.TTSEnabled)
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getDictation(c *gin.Context) {
	if h.dictation == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "speech recognition is not available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"listening": h.dictation.Listening(),
		"pending":   h.dictation.Pending(),
	})
}

func (h *Handler) startDictation(c *gin.Context) {
	if h.dictation == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "speech recognition is not available"})
		return
	}
	if err := h.dictation.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) stopDictation(c *gin.Context) {
	if h.dictation == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "speech recognition is not available"})
		return
	}
	h.dictation.Stop()
	c.JSON(http.StatusOK, gin.H{"text": h.dictation.Take()})
}
