package controller

import (
	"ai-plantcare-be/internal/pkg/serverutils"
	"ai-plantcare-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPodcastController interface {
	RegisterRoutes(r fiber.Router)
	GetContext(ctx *fiber.Ctx) error
}

type podcastController struct {
	podcastContextService service.IPodcastContextService
}

func NewPodcastController(podcastContextService service.IPodcastContextService) IPodcastController {
	return &podcastController{
		podcastContextService: podcastContextService,
	}
}

func (c *podcastController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/podcast/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("context", c.GetContext)
}

// GetContext returns ranked context entries for episode generation.
func (c *podcastController) GetContext(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	topic := ctx.Query("topic", "")
	if topic == "" {
		return serverutils.BadRequest("Query parameter 'topic' is required")
	}
	limit := ctx.QueryInt("limit", 3)

	res, err := c.podcastContextService.GetRecentContext(ctx.Context(), userId, topic, limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get podcast context", res))
}
