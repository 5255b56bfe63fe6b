package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lingopeer/lingopeer/internal/auth"
	"github.com/lingopeer/lingopeer/internal/friends"
	"github.com/lingopeer/lingopeer/internal/models"
)

const userColumns = `id, email, password, full_name, bio, profile_pic,
       native_language, learning_language, location, is_onboarded, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.FullName, &u.Bio, &u.ProfilePic,
		&u.NativeLanguage, &u.LearningLanguage, &u.Location, &u.IsOnboarded, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser hashes the password and inserts the profile row. Fills in the
// id and created timestamp on the passed struct.
func CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	hash, err := auth.HashPassword(user.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash

	q := `INSERT INTO users (id, email, password, full_name, profile_pic)
	      VALUES ($1, $2, $3, $4, $5)
	      RETURNING created_at`

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q,
			user.ID, user.Email, user.Password, user.FullName, user.ProfilePic,
		).Scan(&user.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	u, err := scanUser(DB.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %v", friends.ErrNotFound, id)
	}
	return u, err
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(DB.QueryRow(ctx, q, email))
}

// AuthenticateUser verifies credentials and returns a session JWT.
func AuthenticateUser(ctx context.Context, email, password string) (string, error) {
	user, err := GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("user not found or db error: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.Password)
	if err != nil || !match {
		return "", fmt.Errorf("invalid credentials")
	}

	return auth.CreateJWT(user.ID.String())
}

// CompleteOnboarding writes the language-exchange profile fields and flips
// the onboarded flag.
func CompleteOnboarding(ctx context.Context, u *models.User) error {
	q := `
	UPDATE users
	SET full_name=$1, bio=$2, native_language=$3, learning_language=$4,
	    location=$5, is_onboarded=TRUE
	WHERE id=$6
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q,
			u.FullName, u.Bio, u.NativeLanguage, u.LearningLanguage, u.Location, u.ID,
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("%w: user %v", friends.ErrNotFound, u.ID)
		}
		u.IsOnboarded = true
		return nil
	})
}

// ListOnboardedExcept returns every onboarded profile other than the given
// user, for the recommendation engine.
func ListOnboardedExcept(ctx context.Context, except uuid.UUID) ([]*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE is_onboarded AND id <> $1`
	rows, err := DB.Query(ctx, q, except)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		u.Password = ""
		out = append(out, u)
	}
	return out, rows.Err()
}

// UserDirectory adapts the package-level user queries to the directory
// contract consumed by the recommendation engine.
type UserDirectory struct{}

func (UserDirectory) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return GetUserByID(ctx, id)
}

func (UserDirectory) ListOnboarded(ctx context.Context, except uuid.UUID) ([]*models.User, error) {
	return ListOnboardedExcept(ctx, except)
}
