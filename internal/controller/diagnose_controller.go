package controller

import (
	"errors"

	"ai-plantcare-be/internal/dto"
	"ai-plantcare-be/internal/pkg/serverutils"
	"ai-plantcare-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDiagnoseController interface {
	RegisterRoutes(r fiber.Router)
	Diagnose(ctx *fiber.Ctx) error
}

type diagnoseController struct {
	diagnosisService service.IDiagnosisService
}

func NewDiagnoseController(diagnosisService service.IDiagnosisService) IDiagnoseController {
	return &diagnoseController{
		diagnosisService: diagnosisService,
	}
}

func (c *diagnoseController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/diagnose/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Diagnose)
}

// Diagnose runs the full pipeline on an uploaded photo. The response is
// either the diagnosis payload or the error payload, never both.
func (c *diagnoseController) Diagnose(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	file, err := ctx.FormFile("image")
	if err != nil || file == nil {
		return serverutils.BadRequest("An image file is required")
	}

	data, mime, err := readUpload(file)
	if err != nil {
		return serverutils.BadRequest("Could not read uploaded image")
	}

	req := dto.DiagnoseRequest{
		Image:     data,
		ImageMIME: mime,
		Notes:     ctx.FormValue("notes"),
	}

	res, err := c.diagnosisService.Diagnose(ctx.Context(), userId, &req)
	if err != nil {
		var diagErr *service.DiagnosisError
		if errors.As(err, &diagErr) {
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(dto.DiagnosisErrorResponse{
				Error:   "diagnosis_failed",
				Message: diagErr.Message,
			})
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success diagnose plant", res))
}
