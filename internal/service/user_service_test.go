package service_test

import (
	"context"
	"testing"

	"shopcore/internal/dto"
	"shopcore/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_DuplicateEmailRejected(t *testing.T) {
	svc := service.NewUserService(newStubUserRepo())

	first, err := svc.Create(context.Background(), dto.CreateUserRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.True(t, first.Active)

	_, err = svc.Create(context.Background(), dto.CreateUserRequest{Name: "Other Ana", Email: "ana@example.com"})
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestGetUser_Unknown(t *testing.T) {
	svc := service.NewUserService(newStubUserRepo())
	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
