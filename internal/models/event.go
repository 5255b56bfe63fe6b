package models

import (
	"time"

	"github.com/google/uuid"
)

// Friend event types pushed to the Redis queue and over the notification
// websocket whenever the request state machine commits a change.
const (
	EventRequestSent      = "friend_request.sent"
	EventRequestAccepted  = "friend_request.accepted"
	EventRequestDeclined  = "friend_request.declined"
	EventRequestCancelled = "friend_request.cancelled"
	EventUnfriended       = "friend.removed"
)

// FriendEvent describes a single committed mutation of the friend subsystem.
type FriendEvent struct {
	Type        string    `json:"type"`
	RequestID   uuid.UUID `json:"request_id,omitempty"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Timestamp   int64     `json:"timestamp"`
}

// Notify returns the user who should be told about the event: the
// counterpart of whoever acted.
func (e FriendEvent) Notify() uuid.UUID {
	switch e.Type {
	case EventRequestSent:
		return e.RecipientID
	case EventRequestAccepted, EventRequestDeclined:
		return e.SenderID
	case EventRequestCancelled:
		return e.RecipientID
	case EventUnfriended:
		return e.RecipientID
	}
	return uuid.Nil
}

// Notification is the persisted form of a FriendEvent, written by the
// notifier worker and read back by the notifications endpoint.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ActorID   uuid.UUID `json:"actor_id"`
	Type      string    `json:"type"`
	RequestID uuid.UUID `json:"request_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
