package friends

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lingopeer/lingopeer/internal/models"
)

// EventPublisher receives a FriendEvent after each committed mutation.
// Publish failures are logged and never fail the operation itself.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.FriendEvent) error
}

// Service is the request state machine: the only writer of request status
// and friendship edges. All five mutations (send, accept, decline, cancel,
// unfriend) go through here.
type Service struct {
	store  Store
	log    *logrus.Logger
	events []EventPublisher
}

// NewService wires the state machine to its store. Publishers are optional.
func NewService(store Store, logger *logrus.Logger, events ...EventPublisher) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{store: store, log: logger, events: events}
}

// CheckTransition validates that actor may move req to next: the request
// must still be pending, next must be terminal, and the actor must be the
// recipient (accept, decline) or the sender (cancel). It does not mutate.
func CheckTransition(req *models.FriendRequest, actor uuid.UUID, next models.RequestStatus) error {
	if !next.Terminal() {
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidTransition, next)
	}
	if req.Status != models.StatusPending {
		return fmt.Errorf("%w: request %v is already %s", ErrInvalidTransition, req.ID, req.Status)
	}
	switch next {
	case models.StatusAccepted, models.StatusDeclined:
		if actor != req.RecipientID {
			return fmt.Errorf("%w: only the recipient may %s request %v", ErrInvalidTransition, next, req.ID)
		}
	case models.StatusCancelled:
		if actor != req.SenderID {
			return fmt.Errorf("%w: only the sender may cancel request %v", ErrInvalidTransition, req.ID)
		}
	}
	return nil
}

// Send creates a pending request from sender to recipient.
func (s *Service) Send(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error) {
	req, err := s.store.Create(ctx, sender, recipient)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"request": req.ID, "sender": sender, "recipient": recipient,
	}).Info("friend request sent")
	s.publish(ctx, models.EventRequestSent, req)
	return req, nil
}

// Accept moves the request to accepted and materializes the friendship
// edge. The store applies both effects in one atomic unit; on failure
// neither is observable.
func (s *Service) Accept(ctx context.Context, requestID, recipient uuid.UUID) (*models.FriendRequest, error) {
	req, err := s.store.Transition(ctx, requestID, recipient, models.StatusAccepted)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"request": req.ID, "sender": req.SenderID, "recipient": req.RecipientID,
	}).Info("friend request accepted")
	s.publish(ctx, models.EventRequestAccepted, req)
	return req, nil
}

// Decline moves the request to declined. The record stays in the ledger;
// a later Send between the same pair is allowed again.
func (s *Service) Decline(ctx context.Context, requestID, recipient uuid.UUID) (*models.FriendRequest, error) {
	req, err := s.store.Transition(ctx, requestID, recipient, models.StatusDeclined)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"request": req.ID}).Info("friend request declined")
	s.publish(ctx, models.EventRequestDeclined, req)
	return req, nil
}

// Cancel moves the request to cancelled. Sender only.
func (s *Service) Cancel(ctx context.Context, requestID, sender uuid.UUID) (*models.FriendRequest, error) {
	req, err := s.store.Transition(ctx, requestID, sender, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"request": req.ID}).Info("friend request cancelled")
	s.publish(ctx, models.EventRequestCancelled, req)
	return req, nil
}

// Unfriend removes the friendship edge. Idempotent: removing an edge that
// does not exist is a no-op. Any pending request between the pair is left
// untouched.
func (s *Service) Unfriend(ctx context.Context, user, friend uuid.UUID) error {
	if err := s.store.RemoveEdge(ctx, user, friend); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user": user, "friend": friend}).Info("unfriended")
	s.publishEvent(ctx, models.FriendEvent{
		Type:        models.EventUnfriended,
		SenderID:    user,
		RecipientID: friend,
		Timestamp:   time.Now().UnixMilli(),
	})
	return nil
}

// Friends returns the user's current friend set.
func (s *Service) Friends(ctx context.Context, user uuid.UUID) ([]uuid.UUID, error) {
	return s.store.FriendsOf(ctx, user)
}

// IncomingPending lists actionable requests addressed to user, newest first.
func (s *Service) IncomingPending(ctx context.Context, user uuid.UUID) ([]*models.FriendRequest, error) {
	return s.store.ListIncoming(ctx, user, models.StatusPending)
}

// OutgoingPending lists requests user has sent that are still awaiting an
// answer, newest first. The UI maps these back to live request ids for
// cancellation.
func (s *Service) OutgoingPending(ctx context.Context, user uuid.UUID) ([]*models.FriendRequest, error) {
	return s.store.ListOutgoing(ctx, user, models.StatusPending)
}

func (s *Service) publish(ctx context.Context, eventType string, req *models.FriendRequest) {
	s.publishEvent(ctx, models.FriendEvent{
		Type:        eventType,
		RequestID:   req.ID,
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Timestamp:   time.Now().UnixMilli(),
	})
}

func (s *Service) publishEvent(ctx context.Context, ev models.FriendEvent) {
	for _, pub := range s.events {
		if err := pub.Publish(ctx, ev); err != nil {
			s.log.WithFields(logrus.Fields{"type": ev.Type, "error": err}).Warn("event publish failed")
		}
	}
}
