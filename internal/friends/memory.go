package friends

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lingopeer/lingopeer/internal/models"
)

// pairKey identifies an unordered user pair. Normalizing the order lets a
// single map entry cover both directions.
type pairKey [2]uuid.UUID

func newPairKey(a, b uuid.UUID) pairKey {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return pairKey{a, b}
}

// MemoryStore keeps the ledger, the friendship graph and the user directory
// in process memory behind one mutex, so every operation is trivially
// atomic. Used by the test suites and by local development without
// Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.FriendRequest
	pending  map[pairKey]uuid.UUID
	edges    map[uuid.UUID]map[uuid.UUID]struct{}
	users    map[uuid.UUID]*models.User
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[uuid.UUID]*models.FriendRequest),
		pending:  make(map[pairKey]uuid.UUID),
		edges:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
		users:    make(map[uuid.UUID]*models.User),
	}
}

func (s *MemoryStore) Create(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error) {
	if sender == recipient {
		return nil, fmt.Errorf("%w: user %v", ErrSelfRequest, sender)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.haveEdge(sender, recipient) {
		return nil, fmt.Errorf("%w: %v and %v", ErrAlreadyFriends, sender, recipient)
	}
	if _, ok := s.pending[newPairKey(sender, recipient)]; ok {
		return nil, fmt.Errorf("%w: %v and %v", ErrDuplicatePending, sender, recipient)
	}

	now := time.Now().UTC()
	req := &models.FriendRequest{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.requests[req.ID] = req
	s.pending[newPairKey(sender, recipient)] = req.ID

	out := *req
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %v", ErrNotFound, id)
	}
	out := *req
	return &out, nil
}

func (s *MemoryStore) FindActiveBetween(ctx context.Context, a, b uuid.UUID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.pending[newPairKey(a, b)]
	if !ok {
		return nil, fmt.Errorf("%w: no pending request between %v and %v", ErrNotFound, a, b)
	}
	out := *s.requests[id]
	return &out, nil
}

func (s *MemoryStore) Transition(ctx context.Context, id, actor uuid.UUID, next models.RequestStatus) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %v", ErrNotFound, id)
	}
	if err := CheckTransition(req, actor, next); err != nil {
		return nil, err
	}

	req.Status = next
	req.UpdatedAt = time.Now().UTC()
	delete(s.pending, newPairKey(req.SenderID, req.RecipientID))

	if next == models.StatusAccepted {
		s.addEdge(req.SenderID, req.RecipientID)
	}

	out := *req
	return &out, nil
}

func (s *MemoryStore) ListIncoming(ctx context.Context, user uuid.UUID, statuses ...models.RequestStatus) ([]*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(r *models.FriendRequest) bool { return r.RecipientID == user }, statuses), nil
}

func (s *MemoryStore) ListOutgoing(ctx context.Context, user uuid.UUID, statuses ...models.RequestStatus) ([]*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(r *models.FriendRequest) bool { return r.SenderID == user }, statuses), nil
}

// list must be called with the mutex held.
func (s *MemoryStore) list(match func(*models.FriendRequest) bool, statuses []models.RequestStatus) []*models.FriendRequest {
	var out []*models.FriendRequest
	for _, req := range s.requests {
		if !match(req) {
			continue
		}
		if len(statuses) > 0 && !statusIn(req.Status, statuses) {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func statusIn(s models.RequestStatus, set []models.RequestStatus) bool {
	for _, st := range set {
		if s == st {
			return true
		}
	}
	return false
}

func (s *MemoryStore) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.haveEdge(a, b), nil
}

func (s *MemoryStore) AddEdge(ctx context.Context, a, b uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addEdge(a, b)
	return nil
}

func (s *MemoryStore) RemoveEdge(ctx context.Context, a, b uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges[a], b)
	delete(s.edges[b], a)
	return nil
}

func (s *MemoryStore) FriendsOf(ctx context.Context, user uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(s.edges[user]))
	for id := range s.edges[user] {
		ids = append(ids, id)
	}
	return ids, nil
}

// haveEdge and addEdge must be called with the mutex held.
func (s *MemoryStore) haveEdge(a, b uuid.UUID) bool {
	_, ok := s.edges[a][b]
	return ok
}

func (s *MemoryStore) addEdge(a, b uuid.UUID) {
	if s.edges[a] == nil {
		s.edges[a] = make(map[uuid.UUID]struct{})
	}
	if s.edges[b] == nil {
		s.edges[b] = make(map[uuid.UUID]struct{})
	}
	s.edges[a][b] = struct{}{}
	s.edges[b][a] = struct{}{}
}

// PutUser inserts or replaces a directory entry.
func (s *MemoryStore) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %v", ErrNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ListOnboarded(ctx context.Context, except uuid.UUID) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.User
	for _, u := range s.users {
		if u.ID == except || !u.IsOnboarded {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}
