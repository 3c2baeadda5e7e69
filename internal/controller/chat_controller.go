package controller

import (
	"errors"

	"github.com/twara244/feeling-dumb/internal/dto"
	"github.com/twara244/feeling-dumb/internal/pkg/serverutils"
	"github.com/twara244/feeling-dumb/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Converse(ctx *fiber.Ctx) error
	GetChat(ctx *fiber.Ctx) error
	StartChat(ctx *fiber.Ctx) error
	SaveMessage(ctx *fiber.Ctx) error
	Summary(ctx *fiber.Ctx) error
	DeleteChat(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{chatService: chatService}
}

// Chat routes sit at the root, outside the /api group, and carry user_id in
// the payload rather than a bearer token. That matches the clients already
// in the field.
func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.Converse)
	r.Get("/get_chat", c.GetChat)
	r.Post("/start_chat", c.StartChat)
	r.Post("/save_message", c.SaveMessage)
	r.Get("/summary", c.Summary)
	r.Delete("/delete_chat", c.DeleteChat)
}

// chatErrorStatus maps service errors onto the original API's status codes:
// validation and ownership failures are 403, missing records 404.
func chatErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrAllFieldsMandatory),
		errors.Is(err, service.ErrMissingChatOrMessage),
		errors.Is(err, service.ErrChatNotFound):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrChatMissing),
		errors.Is(err, service.ErrMessageNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrIdsRequired):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func chatError(ctx *fiber.Ctx, err error) error {
	status := chatErrorStatus(err)
	return ctx.Status(status).JSON(serverutils.ErrorResponse(status, err.Error()))
}

// queryUUID reads a uuid from the query string, tolerating absence.
func queryUUID(ctx *fiber.Ctx, key string) uuid.UUID {
	raw := ctx.Query(key)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (c *chatController) Converse(ctx *fiber.Ctx) error {
	var req dto.ConverseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(403, service.ErrAllFieldsMandatory.Error()))
	}

	res, err := c.chatService.Converse(ctx.Context(), &req)
	if err != nil {
		return chatError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Response generated", res))
}

func (c *chatController) GetChat(ctx *fiber.Ctx) error {
	userId := queryUUID(ctx, "user_id")
	chatId := queryUUID(ctx, "chat_id")

	if chatId != uuid.Nil {
		res, err := c.chatService.GetChatHistory(ctx.Context(), userId, chatId)
		if err != nil {
			return chatError(ctx, err)
		}
		return ctx.JSON(serverutils.SuccessResponse("Chat history retrieved", res))
	}

	res, err := c.chatService.GetAllChats(ctx.Context(), userId)
	if err != nil {
		return chatError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chats retrieved", res))
}

func (c *chatController) StartChat(ctx *fiber.Ctx) error {
	var req dto.StartChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(403, service.ErrUnauthorized.Error()))
	}

	res, err := c.chatService.StartSession(ctx.Context(), req.UserId)
	if err != nil {
		return chatError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Chat started", res))
}

func (c *chatController) SaveMessage(ctx *fiber.Ctx) error {
	var req dto.SaveMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(403, service.ErrMissingChatOrMessage.Error()))
	}

	res, err := c.chatService.SaveOrUpdateMessage(ctx.Context(), &req)
	if err != nil {
		return chatError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Message saved", res))
}

func (c *chatController) Summary(ctx *fiber.Ctx) error {
	userId := queryUUID(ctx, "user_id")
	chatId := queryUUID(ctx, "chat_id")

	res, err := c.chatService.Summarize(ctx.Context(), userId, chatId)
	if err != nil {
		return chatError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Summary generated", res))
}

func (c *chatController) DeleteChat(ctx *fiber.Ctx) error {
	userId := queryUUID(ctx, "user_id")
	chatId := queryUUID(ctx, "chat_id")

	if err := c.chatService.DeleteSession(ctx.Context(), userId, chatId); err != nil {
		return chatError(ctx, err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Chat deleted", nil))
}
