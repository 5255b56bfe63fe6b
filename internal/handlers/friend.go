package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/lingopeer/lingopeer/internal/friends"
)

// SendFriendRequestHandler handles a user sending a connection request.
//
// Request payload: { "recipient_id": "some-uuid-string" }
func SendFriendRequestHandler(svc *friends.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
			return
		}

		var req struct {
			RecipientID string `json:"recipient_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		recipientID, err := uuid.Parse(req.RecipientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid recipient_id")
			return
		}

		created, err := svc.Send(r.Context(), userID, recipientID)
		if err != nil {
			writeError(w, friendErrStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// transitionHandler is the shared shape of accept, decline and cancel.
//
// Request payload: { "request_id": "some-uuid-string" }
func transitionHandler(apply func(r *http.Request, requestID, actor uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
			return
		}

		var req struct {
			RequestID string `json:"request_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		requestID, err := uuid.Parse(req.RequestID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request_id")
			return
		}

		out, err := apply(r, requestID, userID)
		if err != nil {
			writeError(w, friendErrStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// AcceptFriendRequestHandler lets the recipient accept a pending request,
// which also creates the friendship.
func AcceptFriendRequestHandler(svc *friends.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, requestID, actor uuid.UUID) (any, error) {
		return svc.Accept(r.Context(), requestID, actor)
	})
}

// DeclineFriendRequestHandler lets the recipient decline a pending request.
func DeclineFriendRequestHandler(svc *friends.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, requestID, actor uuid.UUID) (any, error) {
		return svc.Decline(r.Context(), requestID, actor)
	})
}

// CancelFriendRequestHandler lets the sender withdraw a pending request.
func CancelFriendRequestHandler(svc *friends.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, requestID, actor uuid.UUID) (any, error) {
		return svc.Cancel(r.Context(), requestID, actor)
	})
}

// UnfriendHandler removes an existing friendship. Idempotent.
//
// Request payload: { "friend_id": "some-uuid-string" }
func UnfriendHandler(svc *friends.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
			return
		}

		var req struct {
			FriendID string `json:"friend_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		friendID, err := uuid.Parse(req.FriendID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid friend_id")
			return
		}

		if err := svc.Unfriend(r.Context(), userID, friendID); err != nil {
			writeError(w, friendErrStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ListFriendsHandler returns the caller's friends as full profiles.
func ListFriendsHandler(rec *friends.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
			return
		}

		profiles, err := rec.FriendProfiles(r.Context(), userID)
		if err != nil {
			writeError(w, friendErrStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, profiles)
	}
}

// RecommendedUsersHandler returns learners eligible for a new request.
func RecommendedUsersHandler(rec *friends.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
			return
		}

		users, err := rec.Recommend(r.Context(), userID)
		if err != nil {
			writeError(w, friendErrStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// IncomingRequestsHandler returns pending requests addressed to the caller,
// newest first, for the accept/decline view.
func IncomingRequestsHandler(rec *friends.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
			return
		}

		reqs, err := rec.IncomingPending(r.Context(), userID)
		if err != nil {
			writeError(w, friendErrStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, reqs)
	}
}

// OutgoingRequestsHandler returns the caller's own pending requests; the UI
// uses these to map a candidate back to a live request id for cancellation.
func OutgoingRequestsHandler(rec *friends.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
			return
		}

		reqs, err := rec.OutgoingPending(r.Context(), userID)
		if err != nil {
			writeError(w, friendErrStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, reqs)
	}
}
