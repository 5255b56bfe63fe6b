package handlers

import (
	"net/http"

	"github.com/lingopeer/lingopeer/internal/chat"
)

// ChatTokenHandler returns a provider token for the authenticated user. The
// client hands it to the chat SDK to open messaging and video sessions.
func ChatTokenHandler(provider *chat.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
			return
		}

		token, err := provider.UserToken(userID.String())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to mint chat token")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"token":   token,
			"api_key": provider.APIKey(),
		})
	}
}
