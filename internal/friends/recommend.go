package friends

import (
	"context"

	"github.com/google/uuid"

	"github.com/lingopeer/lingopeer/internal/models"
)

// Recommender computes, for a user, the set of other learners eligible for
// a new friend request.
type Recommender struct {
	store Store
	dir   Directory
}

func NewRecommender(store Store, dir Directory) *Recommender {
	return &Recommender{store: store, dir: dir}
}

// Recommend returns every onboarded user except the user themself, their
// current friends, and anyone tied to them by a pending request in either
// direction. A pair whose only history is a declined or cancelled request
// is eligible again.
func (r *Recommender) Recommend(ctx context.Context, user uuid.UUID) ([]*models.User, error) {
	exclude := map[uuid.UUID]struct{}{user: {}}

	friendIDs, err := r.store.FriendsOf(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, id := range friendIDs {
		exclude[id] = struct{}{}
	}

	incoming, err := r.store.ListIncoming(ctx, user, models.StatusPending)
	if err != nil {
		return nil, err
	}
	for _, req := range incoming {
		exclude[req.SenderID] = struct{}{}
	}
	outgoing, err := r.store.ListOutgoing(ctx, user, models.StatusPending)
	if err != nil {
		return nil, err
	}
	for _, req := range outgoing {
		exclude[req.RecipientID] = struct{}{}
	}

	candidates, err := r.dir.ListOnboarded(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(candidates))
	for _, u := range candidates {
		if _, skip := exclude[u.ID]; skip {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// FriendProfiles resolves the user's friend set to full profiles with the
// Friends field populated, for the friend-list endpoint.
func (r *Recommender) FriendProfiles(ctx context.Context, user uuid.UUID) ([]*models.User, error) {
	ids, err := r.store.FriendsOf(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.dir.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		u.Password = ""
		out = append(out, u)
	}
	return out, nil
}

// OutgoingPending and IncomingPending are read-through views over the
// ledger, kept here so UI collaborators have one place to query feed state.
func (r *Recommender) OutgoingPending(ctx context.Context, user uuid.UUID) ([]*models.FriendRequest, error) {
	return r.store.ListOutgoing(ctx, user, models.StatusPending)
}

func (r *Recommender) IncomingPending(ctx context.Context, user uuid.UUID) ([]*models.FriendRequest, error) {
	return r.store.ListIncoming(ctx, user, models.StatusPending)
}
