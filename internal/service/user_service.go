package service

import (
	"context"
	"time"

	"github.com/twara244/feeling-dumb/internal/dto"
	"github.com/twara244/feeling-dumb/internal/entity"
	"github.com/twara244/feeling-dumb/internal/pkg/logger"
	"github.com/twara244/feeling-dumb/internal/repository/specification"
	"github.com/twara244/feeling-dumb/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IUserService interface {
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error)
	UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserProfileResponse, error)
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, sysLogger logger.ILogger) IUserService {
	return &userService{uowFactory: uowFactory, logger: sysLogger}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toProfileResponse(user *entity.User) *dto.UserProfileResponse {
	return &dto.UserProfileResponse{
		Uid:         user.Id.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    deref(user.PhotoURL),
		PhoneNumber: deref(user.PhoneNumber),
		Provider:    deref(user.Provider),
		CreatedAt:   user.CreatedAt,
		LastLogin:   user.LastLoginAt,
	}
}

func (s *userService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return toProfileResponse(user), nil
}

// UpdateProfile applies only the allow-listed fields. A nil pointer means
// the caller did not send the field, so it is left untouched.
func (s *userService) UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserProfileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.PhotoURL != nil {
		user.PhotoURL = req.PhotoURL
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = req.PhoneNumber
	}
	user.UpdatedAt = time.Now()

	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user", "profile updated", map[string]interface{}{
		"user_id": user.Id.String(),
	})

	return toProfileResponse(user), nil
}
