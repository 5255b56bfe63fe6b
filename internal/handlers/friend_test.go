package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingopeer/lingopeer/internal/auth"
	"github.com/lingopeer/lingopeer/internal/friends"
	"github.com/lingopeer/lingopeer/internal/models"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type testEnv struct {
	store *friends.MemoryStore
	svc   *friends.Service
	rec   *friends.Recommender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	auth.Init()
	store := friends.NewMemoryStore()
	return &testEnv{
		store: store,
		svc:   friends.NewService(store, testLogger()),
		rec:   friends.NewRecommender(store, store),
	}
}

func (e *testEnv) newUser(t *testing.T, name string) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	e.store.PutUser(&models.User{ID: id, FullName: name, IsOnboarded: true})
	token, err := auth.CreateJWT(id.String())
	require.NoError(t, err)
	return id, token
}

func doJSON(t *testing.T, h http.HandlerFunc, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Cookie", "auth_token="+token)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

// TestFriendRequestFlow walks the happy path: send, accept, list friends,
// verify the recommendation feed drops the new friend.
func TestFriendRequestFlow(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.newUser(t, "alice")
	bobID, bobToken := env.newUser(t, "bob")

	// alice sends a request to bob
	w := doJSON(t, SendFriendRequestHandler(env.svc), "POST", "/users/friend-request", aliceToken,
		`{"recipient_id":"`+bobID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.FriendRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.StatusPending, created.Status)

	// bob sees it incoming
	w = doJSON(t, IncomingRequestsHandler(env.rec), "GET", "/users/friend-requests", bobToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var incoming []models.FriendRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &incoming))
	require.Len(t, incoming, 1)
	assert.Equal(t, created.ID, incoming[0].ID)

	// bob accepts
	w = doJSON(t, AcceptFriendRequestHandler(env.svc), "PUT", "/users/friend-request/accept", bobToken,
		`{"request_id":"`+created.ID.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// both friend lists show the other
	w = doJSON(t, ListFriendsHandler(env.rec), "GET", "/users/friends", aliceToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var friendList []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &friendList))
	require.Len(t, friendList, 1)
	assert.Equal(t, bobID, friendList[0].ID)

	// recommendations exclude the new friend
	w = doJSON(t, RecommendedUsersHandler(env.rec), "GET", "/users/recommended", aliceToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var recommended []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recommended))
	for _, u := range recommended {
		assert.NotEqual(t, bobID, u.ID)
	}
}

func TestSendFriendRequestConflicts(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.newUser(t, "alice")
	bobID, bobToken := env.newUser(t, "bob")

	w := doJSON(t, SendFriendRequestHandler(env.svc), "POST", "/users/friend-request", aliceToken,
		`{"recipient_id":"`+bobID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// duplicate in the same direction
	w = doJSON(t, SendFriendRequestHandler(env.svc), "POST", "/users/friend-request", aliceToken,
		`{"recipient_id":"`+bobID.String()+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// bob's own auth cookie, requesting himself
	w = doJSON(t, SendFriendRequestHandler(env.svc), "POST", "/users/friend-request", bobToken,
		`{"recipient_id":"`+bobID.String()+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// no token at all
	w = doJSON(t, SendFriendRequestHandler(env.svc), "POST", "/users/friend-request", "",
		`{"recipient_id":"`+bobID.String()+`"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTransitionHandlersEnforceActor(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.newUser(t, "alice")
	bobID, bobToken := env.newUser(t, "bob")

	w := doJSON(t, SendFriendRequestHandler(env.svc), "POST", "/users/friend-request", aliceToken,
		`{"recipient_id":"`+bobID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.FriendRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// the sender may not accept their own request
	w = doJSON(t, AcceptFriendRequestHandler(env.svc), "PUT", "/users/friend-request/accept", aliceToken,
		`{"request_id":"`+created.ID.String()+`"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// the recipient may not cancel it
	w = doJSON(t, CancelFriendRequestHandler(env.svc), "PUT", "/users/friend-request/cancel", bobToken,
		`{"request_id":"`+created.ID.String()+`"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// unknown request id
	w = doJSON(t, DeclineFriendRequestHandler(env.svc), "PUT", "/users/friend-request/decline", bobToken,
		`{"request_id":"`+uuid.New().String()+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnfriendHandlerIdempotent(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.newUser(t, "alice")
	bobID, bobToken := env.newUser(t, "bob")

	w := doJSON(t, SendFriendRequestHandler(env.svc), "POST", "/users/friend-request", aliceToken,
		`{"recipient_id":"`+bobID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.FriendRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	w = doJSON(t, AcceptFriendRequestHandler(env.svc), "PUT", "/users/friend-request/accept", bobToken,
		`{"request_id":"`+created.ID.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := `{"friend_id":"` + bobID.String() + `"}`
	w = doJSON(t, UnfriendHandler(env.svc), "DELETE", "/users/friends", aliceToken, body)
	assert.Equal(t, http.StatusOK, w.Code)

	// second call is still a 200
	w = doJSON(t, UnfriendHandler(env.svc), "DELETE", "/users/friends", aliceToken, body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, ListFriendsHandler(env.rec), "GET", "/users/friends", aliceToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var friendList []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &friendList))
	assert.Empty(t, friendList)
}

func TestOutgoingRequestsView(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.newUser(t, "alice")
	bobID, _ := env.newUser(t, "bob")

	w := doJSON(t, SendFriendRequestHandler(env.svc), "POST", "/users/friend-request", aliceToken,
		`{"recipient_id":"`+bobID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.FriendRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, OutgoingRequestsHandler(env.rec), "GET", "/users/outgoing-friend-requests", aliceToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var outgoing []models.FriendRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outgoing))
	require.Len(t, outgoing, 1)
	assert.Equal(t, bobID, outgoing[0].RecipientID)

	// cancelling empties the view
	w = doJSON(t, CancelFriendRequestHandler(env.svc), "PUT", "/users/friend-request/cancel", aliceToken,
		`{"request_id":"`+created.ID.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, OutgoingRequestsHandler(env.rec), "GET", "/users/outgoing-friend-requests", aliceToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	outgoing = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outgoing))
	assert.Empty(t, outgoing)
}
