package friends

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingopeer/lingopeer/internal/models"
)

func seedUser(store *MemoryStore, name string, onboarded bool) uuid.UUID {
	u := &models.User{
		ID:          uuid.New(),
		Email:       name + "@example.com",
		FullName:    name,
		IsOnboarded: onboarded,
	}
	store.PutUser(u)
	return u.ID
}

func recommendedIDs(t *testing.T, rec *Recommender, user uuid.UUID) map[uuid.UUID]bool {
	t.Helper()
	users, err := rec.Recommend(context.Background(), user)
	require.NoError(t, err)
	ids := make(map[uuid.UUID]bool, len(users))
	for _, u := range users {
		ids[u.ID] = true
	}
	return ids
}

func TestRecommendExcludesSelfFriendsAndPending(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	rec := NewRecommender(store, store)

	me := seedUser(store, "me", true)
	friend := seedUser(store, "friend", true)
	outgoing := seedUser(store, "outgoing", true)
	incoming := seedUser(store, "incoming", true)
	fresh := seedUser(store, "fresh", true)
	notOnboarded := seedUser(store, "new", false)

	req, err := svc.Send(ctx, me, friend)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, req.ID, friend)
	require.NoError(t, err)

	_, err = svc.Send(ctx, me, outgoing)
	require.NoError(t, err)
	_, err = svc.Send(ctx, incoming, me)
	require.NoError(t, err)

	ids := recommendedIDs(t, rec, me)
	assert.False(t, ids[me])
	assert.False(t, ids[friend])
	assert.False(t, ids[outgoing])
	assert.False(t, ids[incoming])
	assert.False(t, ids[notOnboarded])
	assert.True(t, ids[fresh])
}

func TestRecommendAfterTerminalRequests(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	rec := NewRecommender(store, store)

	me := seedUser(store, "me", true)
	cancelledPeer := seedUser(store, "cancelled", true)
	declinedPeer := seedUser(store, "declined", true)

	req, err := svc.Send(ctx, me, cancelledPeer)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, req.ID, me)
	require.NoError(t, err)

	req, err = svc.Send(ctx, me, declinedPeer)
	require.NoError(t, err)
	_, err = svc.Decline(ctx, req.ID, declinedPeer)
	require.NoError(t, err)

	// Terminal history does not block recommendation.
	ids := recommendedIDs(t, rec, me)
	assert.True(t, ids[cancelledPeer])
	assert.True(t, ids[declinedPeer])
}

func TestRecommendAfterAcceptExcludesBothSides(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	rec := NewRecommender(store, store)

	u1 := seedUser(store, "u1", true)
	u2 := seedUser(store, "u2", true)

	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, req.ID, u2)
	require.NoError(t, err)

	assert.False(t, recommendedIDs(t, rec, u1)[u2])
	assert.False(t, recommendedIDs(t, rec, u2)[u1])
}

func TestFriendProfiles(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	rec := NewRecommender(store, store)

	u1 := seedUser(store, "u1", true)
	u2 := seedUser(store, "u2", true)

	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, req.ID, u2)
	require.NoError(t, err)

	profiles, err := rec.FriendProfiles(ctx, u1)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, u2, profiles[0].ID)
	assert.Empty(t, profiles[0].Password)

	require.NoError(t, svc.Unfriend(ctx, u1, u2))
	profiles, err = rec.FriendProfiles(ctx, u1)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}
