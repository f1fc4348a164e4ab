package controller

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"ai-plantcare-be/internal/dto"
	"ai-plantcare-be/internal/pkg/serverutils"
	"ai-plantcare-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
}

func NewChatbotController(chatbotService service.IChatbotService) IChatbotController {
	return &chatbotController{
		chatbotService: chatbotService,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assistant/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("session", c.CreateSession)
	h.Get("session", c.GetAllSessions)
	h.Get("session/:id/history", c.GetChatHistory)
	h.Delete("session/:id", c.DeleteSession)
	h.Post("chat", c.SendChat)
}

func (c *chatbotController) CreateSession(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.chatbotService.CreateSession(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatbotController) GetAllSessions(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.chatbotService.GetAllSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	idParam := ctx.Params("id")
	sessionId, err := uuid.Parse(idParam)
	if err != nil {
		return serverutils.BadRequest("Invalid session id")
	}

	res, err := c.chatbotService.GetChatHistory(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

// SendChat accepts a multipart form so a turn can carry text, an image, or
// both. The image part is optional and capped by the app body limit.
func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	sessionId, err := uuid.Parse(ctx.FormValue("chat_session_id"))
	if err != nil {
		return serverutils.BadRequest("Invalid chat_session_id")
	}

	req := dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          ctx.FormValue("chat"),
	}

	if file, err := ctx.FormFile("image"); err == nil && file != nil {
		data, mime, err := readUpload(file)
		if err != nil {
			return serverutils.BadRequest("Could not read uploaded image")
		}
		req.Image = data
		req.ImageMIME = mime

		// Keep a copy on disk so history can show the photo later.
		if ref, err := saveUpload("chat", data, filepath.Ext(file.Filename)); err == nil {
			req.ImageRef = &ref
		}
	}

	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}
	if req.Chat == "" && len(req.Image) == 0 {
		return serverutils.BadRequest("Either chat text or an image is required")
	}

	res, err := c.chatbotService.SendChat(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	idParam := ctx.Params("id")
	sessionId, err := uuid.Parse(idParam)
	if err != nil {
		return serverutils.BadRequest("Invalid session id")
	}

	if err := c.chatbotService.DeleteSession(ctx.Context(), userId, &dto.DeleteSessionRequest{
		ChatSessionId: sessionId,
	}); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

// readUpload reads one multipart file part into memory.
func readUpload(file *multipart.FileHeader) ([]byte, string, error) {
	f, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// saveUpload persists an uploaded image under ./uploads and returns the
// public path served by the static route.
func saveUpload(dir string, data []byte, ext string) (string, error) {
	if ext == "" {
		ext = ".jpg"
	}
	if err := os.MkdirAll(filepath.Join("uploads", dir), 0755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s%s", uuid.New(), ext)
	path := filepath.Join("uploads", dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(path), nil
}
