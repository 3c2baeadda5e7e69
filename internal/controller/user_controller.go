package controller

import (
	"errors"

	"github.com/twara244/feeling-dumb/internal/dto"
	"github.com/twara244/feeling-dumb/internal/pkg/serverutils"
	"github.com/twara244/feeling-dumb/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router)
	GetProfile(ctx *fiber.Ctx) error
	UpdateProfile(ctx *fiber.Ctx) error
}

type userController struct {
	userService service.IUserService
}

func NewUserController(userService service.IUserService) IUserController {
	return &userController{userService: userService}
}

func (c *userController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/user", serverutils.JwtMiddleware)
	h.Get("/profile", c.GetProfile)
	h.Put("/profile", c.UpdateProfile)
}

func userIdFromLocals(ctx *fiber.Ctx) (uuid.UUID, bool) {
	idStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, false
	}
	userId, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return userId, true
}

func (c *userController) GetProfile(ctx *fiber.Ctx) error {
	userId, ok := userIdFromLocals(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "invalid token"))
	}

	res, err := c.userService.GetProfile(ctx.Context(), userId)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Profile retrieved", res))
}

func (c *userController) UpdateProfile(ctx *fiber.Ctx) error {
	userId, ok := userIdFromLocals(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "invalid token"))
	}

	var req dto.UpdateProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if !req.HasUpdates() {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "no updatable fields provided"))
	}

	res, err := c.userService.UpdateProfile(ctx.Context(), userId, &req)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Profile updated", res))
}
