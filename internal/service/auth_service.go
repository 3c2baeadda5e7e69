package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/twara244/feeling-dumb/internal/dto"
	"github.com/twara244/feeling-dumb/internal/entity"
	"github.com/twara244/feeling-dumb/internal/pkg/logger"
	"github.com/twara244/feeling-dumb/internal/pkg/mailer"
	"github.com/twara244/feeling-dumb/internal/repository/specification"
	"github.com/twara244/feeling-dumb/internal/repository/unitofwork"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidToken      = errors.New("invalid token")
	ErrUserNotFound      = errors.New("user not found")
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

type IAuthService interface {
	SignUpWithEmail(ctx context.Context, req *dto.SignUpEmailRequest) (*dto.SignUpEmailResponse, error)
	SignInWithEmail(ctx context.Context, idToken string) (*dto.SignInResponse, error)
	SignInWithGoogle(ctx context.Context, idToken string) (*dto.SignInResponse, error)
	VerifyToken(ctx context.Context, idToken string) (*dto.VerifyTokenResponse, error)
	RequestPasswordReset(ctx context.Context, email string) (*dto.PasswordResetResponse, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error

	IssueToken(userId uuid.UUID) (string, error)
}

type authService struct {
	uowFactory     unitofwork.RepositoryFactory
	emailService   mailer.IEmailService
	logger         logger.ILogger
	jwtSecret      string
	clientURL      string
	googleClientID string
	httpClient     *http.Client
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	sysLogger logger.ILogger,
	jwtSecret, clientURL, googleClientID string,
) IAuthService {
	return &authService{
		uowFactory:     uowFactory,
		emailService:   emailService,
		logger:         sysLogger,
		jwtSecret:      jwtSecret,
		clientURL:      clientURL,
		googleClientID: googleClientID,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

// IssueToken signs an HS256 JWT carrying the user id, the only claim the
// rest of the system relies on.
func (s *authService) IssueToken(userId uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userId.String(),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) parseToken(idToken string) (uuid.UUID, error) {
	token, err := jwt.Parse(idToken, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	idStr, _ := claims["user_id"].(string)
	userId, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userId, nil
}

func toAuthUser(user *entity.User) dto.AuthUserDTO {
	return dto.AuthUserDTO{
		Uid:         user.Id.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func (s *authService) SignUpWithEmail(ctx context.Context, req *dto.SignUpEmailRequest) (*dto.SignUpEmailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	now := time.Now()
	user := &entity.User{
		Id:           uuid.New(),
		Email:        req.Email,
		PasswordHash: &hashStr,
		DisplayName:  req.DisplayName,
		CreatedAt:    now,
		LastLoginAt:  now,
		UpdatedAt:    now,
	}

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.IssueToken(user.Id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("auth", "user signed up", map[string]interface{}{
		"user_id": user.Id.String(),
	})

	return &dto.SignUpEmailResponse{
		Token: token,
		User:  toAuthUser(user),
	}, nil
}

func (s *authService) SignInWithEmail(ctx context.Context, idToken string) (*dto.SignInResponse, error) {
	userId, err := s.parseToken(idToken)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	if err := uow.UserRepository().TouchLastLogin(ctx, user.Id); err != nil {
		return nil, err
	}

	return &dto.SignInResponse{User: toAuthUser(user)}, nil
}

// googleTokenInfo is the subset of Google's tokeninfo response we need.
type googleTokenInfo struct {
	Aud   string `json:"aud"`
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *authService) verifyGoogleIDToken(ctx context.Context, idToken string) (*googleTokenInfo, error) {
	reqURL := fmt.Sprintf("%s?id_token=%s", googleTokenInfoURL, url.QueryEscape(idToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, ErrInvalidToken
	}

	var info googleTokenInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return nil, err
	}
	if s.googleClientID != "" && info.Aud != s.googleClientID {
		return nil, ErrInvalidToken
	}
	if info.Email == "" {
		return nil, ErrInvalidToken
	}
	return &info, nil
}

// SignInWithGoogle verifies a Google-issued ID token and upserts the user:
// first federated sign-in creates the mirror record, later ones refresh
// last_login_at.
func (s *authService) SignInWithGoogle(ctx context.Context, idToken string) (*dto.SignInResponse, error) {
	info, err := s.verifyGoogleIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: info.Email})
	if err != nil {
		return nil, err
	}

	if user == nil {
		provider := "google"
		now := time.Now()
		user = &entity.User{
			Id:          uuid.New(),
			Email:       info.Email,
			DisplayName: info.Name,
			Provider:    &provider,
			CreatedAt:   now,
			LastLoginAt: now,
			UpdatedAt:   now,
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, err
		}
	} else if err := uow.UserRepository().TouchLastLogin(ctx, user.Id); err != nil {
		return nil, err
	}

	return &dto.SignInResponse{User: toAuthUser(user)}, nil
}

func (s *authService) VerifyToken(ctx context.Context, idToken string) (*dto.VerifyTokenResponse, error) {
	userId, err := s.parseToken(idToken)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	authUser := toAuthUser(user)
	return &dto.VerifyTokenResponse{Valid: true, User: &authUser}, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) (*dto.PasswordResetResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	resetToken := &entity.PasswordResetToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(1 * time.Hour),
		CreatedAt: time.Now(),
	}
	if err := uow.UserRepository().CreatePasswordResetToken(ctx, resetToken); err != nil {
		return nil, err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.clientURL, resetToken.Token)

	go func() {
		if emailErr := s.emailService.SendPasswordResetLink(user.Email, resetLink); emailErr != nil {
			s.logger.Warn("auth", "failed to send reset email", map[string]interface{}{
				"user_id": user.Id.String(),
				"error":   emailErr.Error(),
			})
		}
	}()

	return &dto.PasswordResetResponse{ResetLink: resetLink}, nil
}

func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	resetToken, err := uow.UserRepository().FindPasswordResetToken(ctx, specification.ByToken{Token: req.Token})
	if err != nil {
		return err
	}
	if resetToken == nil || resetToken.Used || time.Now().After(resetToken.ExpiresAt) {
		return ErrResetTokenInvalid
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: resetToken.UserId})
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hashStr := string(hash)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	user.PasswordHash = &hashStr
	user.UpdatedAt = time.Now()
	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return err
	}
	if err := uow.UserRepository().MarkPasswordResetTokenUsed(ctx, resetToken.Id); err != nil {
		return err
	}

	return uow.Commit()
}
