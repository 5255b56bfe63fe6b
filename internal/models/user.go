package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a learner profile. NativeLanguage and LearningLanguage are
// lowercase language names ("english", "spanish"), matching what the
// onboarding flow collects.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	FullName string    `json:"full_name"`

	Bio              string `json:"bio"`
	ProfilePic       string `json:"profile_pic"`
	NativeLanguage   string `json:"native_language"`
	LearningLanguage string `json:"learning_language"`
	Location         string `json:"location"`
	IsOnboarded      bool   `json:"is_onboarded"`

	// Friends is filled in from the friendship graph when a caller asks for
	// a hydrated profile; it is never written directly.
	Friends []uuid.UUID `json:"friends,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
