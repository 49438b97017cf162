package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupUserServiceTest(t *testing.T) (IUserService, func()) {
	db, cleanup := setupTestDB(t, uniqueDBName("user_service"))
	return NewUserService(db), cleanup
}

func TestUserService_CreateAndFind(t *testing.T) {
	svc, cleanup := setupUserServiceTest(t)
	defer cleanup()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "mugsupplier", "mugs@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)

	fetched, err := svc.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "mugsupplier", fetched.Username)

	byName, err := svc.FindUserByUsername(ctx, "mugsupplier")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = svc.FindUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestUserService_RecordNegotiationOutcome(t *testing.T) {
	svc, cleanup := setupUserServiceTest(t)
	defer cleanup()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "dealer", "dealer@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.RecordNegotiationOutcome(ctx, user.ID, true, 2))
	require.NoError(t, svc.RecordNegotiationOutcome(ctx, user.ID, false, 4))
	require.NoError(t, svc.RecordNegotiationOutcome(ctx, user.ID, true, 3))

	fetched, err := svc.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, fetched.Stats.Total)
	assert.Equal(t, 2, fetched.Stats.Accepted)
	assert.Equal(t, 1, fetched.Stats.Rejected)
	assert.InDelta(t, 3.0, fetched.Stats.AvgRounds, 1e-9)
}

func TestUserService_RecordOutcomeUnknownUser(t *testing.T) {
	svc, cleanup := setupUserServiceTest(t)
	defer cleanup()

	err := svc.RecordNegotiationOutcome(context.Background(), uuid.New(), true, 1)
	assert.Error(t, err)
}
