package service

import (
	"context"
	"testing"
	"time"

	"github.com/twara244/feeling-dumb/internal/dto"
	"github.com/twara244/feeling-dumb/internal/entity"
	"github.com/twara244/feeling-dumb/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(store *fakeStore) *entity.User {
	now := time.Now()
	u := &entity.User{
		Id:          uuid.New(),
		Email:       "a@b.com",
		DisplayName: "Alice",
		CreatedAt:   now,
		LastLoginAt: now,
		UpdatedAt:   now,
	}
	store.users[u.Id] = u
	return u
}

func TestGetProfile(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(&fakeFactory{store: store}, logger.NewNopLogger())

	user := seedUser(store)

	res, err := svc.GetProfile(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, user.Id.String(), res.Uid)
	assert.Equal(t, "a@b.com", res.Email)
	assert.Equal(t, "Alice", res.DisplayName)
	assert.Empty(t, res.PhotoURL)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfileAllowList(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(&fakeFactory{store: store}, logger.NewNopLogger())

	user := seedUser(store)

	name := "Alicia"
	photo := "https://img.example/alicia.png"
	res, err := svc.UpdateProfile(context.Background(), user.Id, &dto.UpdateProfileRequest{
		DisplayName: &name,
		PhotoURL:    &photo,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", res.DisplayName)
	assert.Equal(t, photo, res.PhotoURL)
	// Untouched field stays empty.
	assert.Empty(t, res.PhoneNumber)
	// Identity fields never move.
	assert.Equal(t, "a@b.com", res.Email)

	// Omitted fields survive a later partial update.
	phone := "+15550100"
	res, err = svc.UpdateProfile(context.Background(), user.Id, &dto.UpdateProfileRequest{
		PhoneNumber: &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", res.DisplayName)
	assert.Equal(t, phone, res.PhoneNumber)
}
