package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/twara244/feeling-dumb/internal/dto"
	"github.com/twara244/feeling-dumb/internal/entity"
	"github.com/twara244/feeling-dumb/internal/pkg/logger"
	"github.com/twara244/feeling-dumb/internal/repository/specification"
	"github.com/twara244/feeling-dumb/internal/repository/unitofwork"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var ErrOAuthExchange = errors.New("failed to exchange authorization code")

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type IOAuthService interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*dto.OAuthCallbackResponse, error)
}

type oauthService struct {
	uowFactory  unitofwork.RepositoryFactory
	authService IAuthService
	logger      logger.ILogger
	oauthConfig *oauth2.Config
}

func NewOAuthService(
	uowFactory unitofwork.RepositoryFactory,
	authService IAuthService,
	sysLogger logger.ILogger,
	clientID, clientSecret, redirectURL string,
) IOAuthService {
	return &oauthService{
		uowFactory:  uowFactory,
		authService: authService,
		logger:      sysLogger,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (s *oauthService) GetLoginURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

type googleUserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *oauthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	res, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, ErrOAuthExchange
	}
	return &info, nil
}

func (s *oauthService) HandleCallback(ctx context.Context, code string) (*dto.OAuthCallbackResponse, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("oauth", "code exchange failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, ErrOAuthExchange
	}

	info, err := s.fetchUserInfo(ctx, token)
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
		if info.Picture != "" {
			user.PhotoURL = &info.Picture
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, err
		}
	} else if err := uow.UserRepository().TouchLastLogin(ctx, user.Id); err != nil {
		return nil, err
	}

	appToken, err := s.authService.IssueToken(user.Id)
	if err != nil {
		return nil, err
	}

	return &dto.OAuthCallbackResponse{
		Token: appToken,
		User:  toAuthUser(user),
	}, nil
}
