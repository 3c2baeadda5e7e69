package dto

// Auth payloads keep the original API's camelCase field names.

type SignUpEmailRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"displayName"`
}

type AuthUserDTO struct {
	Uid         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type SignUpEmailResponse struct {
	Token string      `json:"token"`
	User  AuthUserDTO `json:"user"`
}

type TokenRequest struct {
	IdToken string `json:"idToken" validate:"required"`
}

type SignInResponse struct {
	User AuthUserDTO `json:"user"`
}

type VerifyTokenResponse struct {
	Valid bool         `json:"valid"`
	User  *AuthUserDTO `json:"user,omitempty"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetResponse struct {
	ResetLink string `json:"resetLink"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type OAuthLoginURLResponse struct {
	URL string `json:"url"`
}

type OAuthCallbackResponse struct {
	Token string      `json:"token"`
	User  AuthUserDTO `json:"user"`
}
