package friends

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingopeer/lingopeer/internal/models"
)

func newTestService(pubs ...EventPublisher) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewService(store, logger, pubs...), store
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.FriendEvent
}

func (c *capturePublisher) Publish(ctx context.Context, ev models.FriendEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func TestSendBlocksBothDirectionsWhilePending(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	u1, u2 := uuid.New(), uuid.New()

	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)

	_, err = svc.Send(ctx, u1, u2)
	assert.ErrorIs(t, err, ErrDuplicatePending)

	// The reverse direction is blocked too; this is the tie-break for two
	// users requesting each other concurrently.
	_, err = svc.Send(ctx, u2, u1)
	assert.ErrorIs(t, err, ErrDuplicatePending)
}

func TestSendToSelf(t *testing.T) {
	svc, _ := newTestService()
	u := uuid.New()
	_, err := svc.Send(context.Background(), u, u)
	assert.ErrorIs(t, err, ErrSelfRequest)
}

func TestSendToExistingFriend(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	u1, u2 := uuid.New(), uuid.New()

	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, req.ID, u2)
	require.NoError(t, err)

	_, err = svc.Send(ctx, u1, u2)
	assert.ErrorIs(t, err, ErrAlreadyFriends)
	_, err = svc.Send(ctx, u2, u1)
	assert.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestAcceptCreatesFriendshipAtomically(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	svc, store := newTestService(pub)
	u1, u2 := uuid.New(), uuid.New()

	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)

	accepted, err := svc.Accept(ctx, req.ID, u2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	ok, err := store.AreFriends(ctx, u1, u2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.AreFriends(ctx, u2, u1)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, pub.events, 2)
	assert.Equal(t, models.EventRequestSent, pub.events[0].Type)
	assert.Equal(t, models.EventRequestAccepted, pub.events[1].Type)
}

func TestTransitionAuthorization(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	u1, u2, stranger := uuid.New(), uuid.New(), uuid.New()

	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)

	// Only the recipient may accept or decline.
	_, err = svc.Accept(ctx, req.ID, u1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Accept(ctx, req.ID, stranger)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Decline(ctx, req.ID, u1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Only the sender may cancel.
	_, err = svc.Cancel(ctx, req.ID, u2)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Cancel(ctx, req.ID, stranger)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// The request is still pending after every rejected attempt.
	cur, err := svc.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, cur.Status)
}

func TestTerminalRequestsAreImmutable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	u1, u2 := uuid.New(), uuid.New()

	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)
	_, err = svc.Decline(ctx, req.ID, u2)
	require.NoError(t, err)

	_, err = svc.Accept(ctx, req.ID, u2)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Cancel(ctx, req.ID, u1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionUnknownRequest(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Accept(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeclineAllowsResend(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	u1, u4 := uuid.New(), uuid.New()

	req, err := svc.Send(ctx, u1, u4)
	require.NoError(t, err)
	_, err = svc.Decline(ctx, req.ID, u4)
	require.NoError(t, err)

	ok, err := store.AreFriends(ctx, u1, u4)
	require.NoError(t, err)
	assert.False(t, ok)

	// A fresh send succeeds; the declined record stays in history.
	second, err := svc.Send(ctx, u1, u4)
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, second.ID)

	old, err := store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, old.Status)
}

func TestCancelAllowsResend(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	u1, u3 := uuid.New(), uuid.New()

	req, err := svc.Send(ctx, u1, u3)
	require.NoError(t, err)
	cancelled, err := svc.Cancel(ctx, req.ID, u1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	ok, err := store.AreFriends(ctx, u1, u3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Send(ctx, u3, u1)
	assert.NoError(t, err)
}

func TestUnfriendIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	u1, u2 := uuid.New(), uuid.New()

	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, req.ID, u2)
	require.NoError(t, err)

	require.NoError(t, svc.Unfriend(ctx, u1, u2))
	ok, err := store.AreFriends(ctx, u1, u2)
	require.NoError(t, err)
	assert.False(t, ok)

	// Second call is a no-op, not an error.
	require.NoError(t, svc.Unfriend(ctx, u1, u2))

	// Unfriending two users who were never friends is fine too.
	require.NoError(t, svc.Unfriend(ctx, uuid.New(), uuid.New()))
}

func TestUnfriendLeavesPendingRequestsAlone(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()

	// u1 and u2 become friends, u1 also has a pending request to u3.
	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, req.ID, u2)
	require.NoError(t, err)
	pending, err := svc.Send(ctx, u1, u3)
	require.NoError(t, err)

	require.NoError(t, svc.Unfriend(ctx, u1, u2))

	cur, err := store.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, cur.Status)
}

func TestListPendingViews(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()

	first, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)
	second, err := svc.Send(ctx, u3, u2)
	require.NoError(t, err)

	incoming, err := svc.IncomingPending(ctx, u2)
	require.NoError(t, err)
	require.Len(t, incoming, 2)

	outgoing, err := svc.OutgoingPending(ctx, u1)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, first.ID, outgoing[0].ID)

	// Terminal requests drop out of the pending views.
	_, err = svc.Decline(ctx, second.ID, u2)
	require.NoError(t, err)
	incoming, err = svc.IncomingPending(ctx, u2)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, first.ID, incoming[0].ID)
}

func TestFindActiveBetweenEitherDirection(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	u1, u2 := uuid.New(), uuid.New()

	req, err := svc.Send(ctx, u1, u2)
	require.NoError(t, err)

	found, err := store.FindActiveBetween(ctx, u2, u1)
	require.NoError(t, err)
	assert.Equal(t, req.ID, found.ID)

	_, err = svc.Cancel(ctx, req.ID, u1)
	require.NoError(t, err)
	_, err = store.FindActiveBetween(ctx, u1, u2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentSendsOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	u1, u2 := uuid.New(), uuid.New()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.Send(ctx, u1, u2)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = svc.Send(ctx, u2, u1)
	}()
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrDuplicatePending):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
}
