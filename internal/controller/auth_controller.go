package controller

import (
	"errors"

	"github.com/twara244/feeling-dumb/internal/dto"
	"github.com/twara244/feeling-dumb/internal/pkg/serverutils"
	"github.com/twara244/feeling-dumb/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	SignUpEmail(ctx *fiber.Ctx) error
	SignInEmail(ctx *fiber.Ctx) error
	SignInGoogle(ctx *fiber.Ctx) error
	VerifyToken(ctx *fiber.Ctx) error
	PasswordReset(ctx *fiber.Ctx) error
	ResetPassword(ctx *fiber.Ctx) error
	OAuthLogin(ctx *fiber.Ctx) error
	OAuthCallback(ctx *fiber.Ctx) error
}

type authController struct {
	authService  service.IAuthService
	oauthService service.IOAuthService
}

func NewAuthController(authService service.IAuthService, oauthService service.IOAuthService) IAuthController {
	return &authController{authService: authService, oauthService: oauthService}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/signup/email", c.SignUpEmail)
	h.Post("/signin/email", c.SignInEmail)
	h.Post("/signin/google", c.SignInGoogle)
	h.Post("/verify-token", c.VerifyToken)
	h.Post("/password-reset", c.PasswordReset)
	h.Post("/reset-password", c.ResetPassword)
	h.Get("/oauth/:provider/login", c.OAuthLogin)
	h.Get("/oauth/:provider/callback", c.OAuthCallback)
}

func (c *authController) SignUpEmail(ctx *fiber.Ctx) error {
	var req dto.SignUpEmailRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.authService.SignUpWithEmail(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(409, err.Error()))
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("User created successfully", res))
}

func (c *authController) SignInEmail(ctx *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.authService.SignInWithEmail(ctx.Context(), req.IdToken)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Signed in successfully", res))
}

func (c *authController) SignInGoogle(ctx *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.authService.SignInWithGoogle(ctx.Context(), req.IdToken)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Signed in successfully", res))
}

func (c *authController) VerifyToken(ctx *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}

	res, err := c.authService.VerifyToken(ctx.Context(), req.IdToken)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.Response[*dto.VerifyTokenResponse]{
			Code:    401,
			Message: "Token invalid",
			Data:    &dto.VerifyTokenResponse{Valid: false},
		})
	}

	return ctx.JSON(serverutils.SuccessResponse("Token verified", res))
}

func (c *authController) PasswordReset(ctx *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.authService.RequestPasswordReset(ctx.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Password reset link generated", res))
}

func (c *authController) ResetPassword(ctx *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.authService.ResetPassword(ctx.Context(), &req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Password reset successful", nil))
}

func (c *authController) OAuthLogin(ctx *fiber.Ctx) error {
	if ctx.Params("provider") != "google" {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "unsupported provider"))
	}

	state := ctx.Query("state", "state-token")
	url := c.oauthService.GetLoginURL(state)

	return ctx.JSON(serverutils.SuccessResponse("Login URL generated", &dto.OAuthLoginURLResponse{URL: url}))
}

func (c *authController) OAuthCallback(ctx *fiber.Ctx) error {
	if ctx.Params("provider") != "google" {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "unsupported provider"))
	}

	code := ctx.Query("code")
	if code == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "missing authorization code"))
	}

	res, err := c.oauthService.HandleCallback(ctx.Context(), code)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Signed in successfully", res))
}
