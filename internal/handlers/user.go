package handlers

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/lingopeer/lingopeer/internal/auth"
	"github.com/lingopeer/lingopeer/internal/database"
	"github.com/lingopeer/lingopeer/internal/models"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// SignupHandler creates an account, assigns a random avatar and sets the
// session cookie.
func SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Email == "" || req.FullName == "" {
		writeError(w, http.StatusBadRequest, "email and full_name are required")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	user := models.User{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		ProfilePic: fmt.Sprintf("https://avatar.iran.liara.run/public/%d.png", rand.Intn(100)+1),
	}
	if err := database.CreateUser(r.Context(), &user); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := auth.CreateJWT(user.ID.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	setAuthCookie(w, token)

	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler verifies credentials and sets the session cookie.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	token, err := database.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	setAuthCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LogoutHandler clears the session cookie.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		HttpOnly: true,
		Path:     "/",
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MeHandler returns the authenticated user's profile.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
		return
	}

	user, err := database.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

type onboardingRequest struct {
	FullName         string `json:"full_name"`
	Bio              string `json:"bio"`
	NativeLanguage   string `json:"native_language"`
	LearningLanguage string `json:"learning_language"`
	Location         string `json:"location"`
}

// OnboardingHandler completes the language-exchange profile. All fields are
// required; the onboarded flag gates the recommendation feed.
func OnboardingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
		return
	}

	var req onboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.FullName == "" || req.NativeLanguage == "" || req.LearningLanguage == "" || req.Location == "" {
		writeError(w, http.StatusBadRequest, "full_name, native_language, learning_language and location are required")
		return
	}

	user := models.User{
		ID:               userID,
		FullName:         req.FullName,
		Bio:              req.Bio,
		NativeLanguage:   req.NativeLanguage,
		LearningLanguage: req.LearningLanguage,
		Location:         req.Location,
	}
	if err := database.CompleteOnboarding(r.Context(), &user); err != nil {
		writeError(w, friendErrStatus(err), "failed to complete onboarding")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// NotificationsHandler lists the caller's persisted notifications and marks
// them read.
func NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing auth_token")
		return
	}

	notifs, err := database.ListNotifications(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if err := database.MarkNotificationsRead(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, notifs)
}

func setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
}
