package friends

import (
	"context"

	"github.com/google/uuid"

	"github.com/lingopeer/lingopeer/internal/models"
)

// Ledger stores one record per connection request. At most one pending
// request may exist between any unordered pair of users.
type Ledger interface {
	// Create inserts a pending request from sender to recipient. Fails with
	// ErrSelfRequest, ErrAlreadyFriends or ErrDuplicatePending.
	Create(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error)

	// Get returns the request by id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error)

	// FindActiveBetween returns the pending request between the pair in
	// either direction, or ErrNotFound if there is none.
	FindActiveBetween(ctx context.Context, a, b uuid.UUID) (*models.FriendRequest, error)

	// Transition moves a pending request to a terminal status. The actor
	// must be the recipient for accepted/declined and the sender for
	// cancelled; anything else is ErrInvalidTransition. A transition to
	// accepted also inserts the friendship edge, atomically with the
	// status change.
	Transition(ctx context.Context, id, actor uuid.UUID, next models.RequestStatus) (*models.FriendRequest, error)

	// ListIncoming returns requests addressed to user, newest first,
	// filtered to the given statuses (all statuses when none are given).
	ListIncoming(ctx context.Context, user uuid.UUID, statuses ...models.RequestStatus) ([]*models.FriendRequest, error)

	// ListOutgoing is ListIncoming for requests sent by user.
	ListOutgoing(ctx context.Context, user uuid.UUID, statuses ...models.RequestStatus) ([]*models.FriendRequest, error)
}

// Graph is the derived symmetric is-friend-of relation. Edges are only
// created by request acceptance (through Ledger.Transition) and removed by
// unfriending.
type Graph interface {
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)

	// AddEdge inserts the edge in both directions. Idempotent: adding an
	// edge that already exists has no further effect. Only the state
	// machine calls this, as part of request acceptance.
	AddEdge(ctx context.Context, a, b uuid.UUID) error

	// RemoveEdge deletes the edge in both directions. Removing an edge that
	// does not exist is a no-op, not an error.
	RemoveEdge(ctx context.Context, a, b uuid.UUID) error

	FriendsOf(ctx context.Context, user uuid.UUID) ([]uuid.UUID, error)
}

// Store is the persistence contract for the friend subsystem. One
// implementation backs both halves so that accept can flip the request
// status and insert the edge in a single atomic unit.
type Store interface {
	Ledger
	Graph
}

// Directory provides read access to learner profiles for the
// recommendation engine and the hydrated list endpoints.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	// ListOnboarded returns every onboarded user except the given one.
	ListOnboarded(ctx context.Context, except uuid.UUID) ([]*models.User, error)
}
