package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lingopeer/lingopeer/internal/friends"
	"github.com/lingopeer/lingopeer/internal/models"
)

// FriendStore is the Postgres implementation of the friend subsystem's
// store contract. Expected schema:
//
//	friend_requests(id uuid primary key, sender_id uuid, recipient_id uuid,
//	                status text, created_at timestamptz, updated_at timestamptz)
//	friendships(user_id uuid, friend_id uuid, primary key (user_id, friend_id))
//
// plus a partial unique index enforcing at most one pending request per
// unordered pair, which is what makes concurrent cross-sends safe:
//
//	CREATE UNIQUE INDEX friend_requests_pending_pair
//	ON friend_requests (LEAST(sender_id, recipient_id), GREATEST(sender_id, recipient_id))
//	WHERE status = 'pending';
//
// Friendship edges are stored in both directions so FriendsOf is a single
// indexed lookup.
type FriendStore struct {
	pool *pgxpool.Pool
}

// NewFriendStore uses the global pool set up by ConnectDB.
func NewFriendStore() *FriendStore {
	return &FriendStore{pool: DB}
}

const pgUniqueViolation = "23505"

// wrapStoreErr passes domain errors through and folds everything else into
// ErrStoreUnavailable.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{
		friends.ErrSelfRequest, friends.ErrAlreadyFriends, friends.ErrDuplicatePending,
		friends.ErrNotFound, friends.ErrInvalidTransition,
	} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", friends.ErrStoreUnavailable, op, err)
}

const requestColumns = `id, sender_id, recipient_id, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*models.FriendRequest, error) {
	var r models.FriendRequest
	err := row.Scan(&r.ID, &r.SenderID, &r.RecipientID, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *FriendStore) Create(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error) {
	if sender == recipient {
		return nil, fmt.Errorf("%w: user %v", friends.ErrSelfRequest, sender)
	}

	req := &models.FriendRequest{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Status:      models.StatusPending,
	}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var alreadyFriends bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2)`,
			sender, recipient,
		).Scan(&alreadyFriends)
		if err != nil {
			return err
		}
		if alreadyFriends {
			return fmt.Errorf("%w: %v and %v", friends.ErrAlreadyFriends, sender, recipient)
		}

		q := `
			INSERT INTO friend_requests (id, sender_id, recipient_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, 'pending', NOW(), NOW())
			RETURNING created_at, updated_at
		`
		return tx.QueryRow(ctx, q, req.ID, sender, recipient).Scan(&req.CreatedAt, &req.UpdatedAt)
	})
	if err != nil {
		// The partial unique index rejects a second pending request for
		// the pair, in either direction.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("%w: %v and %v", friends.ErrDuplicatePending, sender, recipient)
		}
		return nil, wrapStoreErr("create request", err)
	}
	return req, nil
}

func (s *FriendStore) Get(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM friend_requests WHERE id=$1`
	req, err := scanRequest(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: request %v", friends.ErrNotFound, id)
	}
	return req, wrapStoreErr("get request", err)
}

func (s *FriendStore) FindActiveBetween(ctx context.Context, a, b uuid.UUID) (*models.FriendRequest, error) {
	q := `
		SELECT ` + requestColumns + `
		FROM friend_requests
		WHERE status='pending'
		  AND ((sender_id=$1 AND recipient_id=$2) OR (sender_id=$2 AND recipient_id=$1))
	`
	req, err := scanRequest(s.pool.QueryRow(ctx, q, a, b))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no pending request between %v and %v", friends.ErrNotFound, a, b)
	}
	return req, wrapStoreErr("find active request", err)
}

func (s *FriendStore) Transition(ctx context.Context, id, actor uuid.UUID, next models.RequestStatus) (*models.FriendRequest, error) {
	var req *models.FriendRequest

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		// FOR UPDATE serializes concurrent transitions of the same request:
		// the loser of the race re-reads a terminal status and fails the
		// legality check below.
		q := `SELECT ` + requestColumns + ` FROM friend_requests WHERE id=$1 FOR UPDATE`
		var err error
		req, err = scanRequest(tx.QueryRow(ctx, q, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: request %v", friends.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		if err := friends.CheckTransition(req, actor, next); err != nil {
			return err
		}

		upd := `UPDATE friend_requests SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING updated_at`
		if err := tx.QueryRow(ctx, upd, next, id).Scan(&req.UpdatedAt); err != nil {
			return err
		}
		req.Status = next

		// Acceptance materializes the edge inside the same transaction, so
		// the status flip and the friendship are never observed apart.
		if next == models.StatusAccepted {
			return addEdgeTx(ctx, tx, req.SenderID, req.RecipientID)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("transition request", err)
	}
	return req, nil
}

func (s *FriendStore) listRequests(ctx context.Context, column string, user uuid.UUID, statuses []models.RequestStatus) ([]*models.FriendRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM friend_requests WHERE ` + column + `=$1`
	args := []any{user}
	if len(statuses) > 0 {
		q += ` AND status = ANY($2)`
		strs := make([]string, len(statuses))
		for i, st := range statuses {
			strs[i] = string(st)
		}
		args = append(args, strs)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, wrapStoreErr("list requests", err)
	}
	defer rows.Close()

	var out []*models.FriendRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, wrapStoreErr("list requests", err)
		}
		out = append(out, req)
	}
	return out, wrapStoreErr("list requests", rows.Err())
}

func (s *FriendStore) ListIncoming(ctx context.Context, user uuid.UUID, statuses ...models.RequestStatus) ([]*models.FriendRequest, error) {
	return s.listRequests(ctx, "recipient_id", user, statuses)
}

func (s *FriendStore) ListOutgoing(ctx context.Context, user uuid.UUID, statuses ...models.RequestStatus) ([]*models.FriendRequest, error) {
	return s.listRequests(ctx, "sender_id", user, statuses)
}

func (s *FriendStore) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2)`, a, b,
	).Scan(&ok)
	return ok, wrapStoreErr("are friends", err)
}

func (s *FriendStore) AddEdge(ctx context.Context, a, b uuid.UUID) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return addEdgeTx(ctx, tx, a, b)
	})
	return wrapStoreErr("add edge", err)
}

func (s *FriendStore) RemoveEdge(ctx context.Context, a, b uuid.UUID) error {
	q := `
		DELETE FROM friendships
		WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)
	`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, a, b)
		return e
	})
	return wrapStoreErr("remove edge", err)
}

func (s *FriendStore) FriendsOf(ctx context.Context, user uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT friend_id FROM friendships WHERE user_id=$1`, user)
	if err != nil {
		return nil, wrapStoreErr("friends of", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapStoreErr("friends of", err)
		}
		ids = append(ids, id)
	}
	return ids, wrapStoreErr("friends of", rows.Err())
}

// addEdgeTx inserts both directions of the edge. ON CONFLICT keeps it
// idempotent.
func addEdgeTx(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) error {
	q := `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT (user_id, friend_id) DO NOTHING
	`
	_, err := tx.Exec(ctx, q, a, b)
	return err
}
