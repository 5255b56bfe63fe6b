package friends

import "errors"

// Error kinds surfaced by the ledger and the request state machine. Callers
// match with errors.Is; the wrapped message carries the ids involved.
var (
	// ErrSelfRequest: sender and recipient are the same user.
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")

	// ErrAlreadyFriends: a friendship edge already links the pair.
	ErrAlreadyFriends = errors.New("users are already friends")

	// ErrDuplicatePending: a pending request already exists between the
	// pair, in either direction.
	ErrDuplicatePending = errors.New("a pending request already exists between these users")

	// ErrNotFound: unknown request or user id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition: the request is not pending, the actor is not
	// authorized for the transition, or the target status is not terminal.
	ErrInvalidTransition = errors.New("invalid request transition")

	// ErrStoreUnavailable: the persistent store failed. Never retried by
	// the core; surfaced to the caller as-is.
	ErrStoreUnavailable = errors.New("store unavailable")
)
