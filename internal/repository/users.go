package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/contactkeeper/contacts-service/internal/model"
)

// UserRepository runs the user account queries against the database.
// Like ContactRepository, all statements are prepared at construction time.
type UserRepository struct {
	db            *sqlx.DB
	insert        *sqlx.Stmt
	selectByID    *sqlx.Stmt
	selectByEmail *sqlx.Stmt
	updateToken   *sqlx.Stmt
	confirm       *sqlx.Stmt
	updateAvatar  *sqlx.Stmt
}

// NewUserRepository prepares all user statements on the given database
// handle.
func NewUserRepository(db *sqlx.DB) (*UserRepository, error) {
	r := &UserRepository{db: db}
	var err error
	r.insert, err = db.Preparex(`
		INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert user: %w", err)
	}
	r.selectByID, err = db.Preparex(`
		SELECT * FROM users WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select user by id: %w", err)
	}
	r.selectByEmail, err = db.Preparex(`
		SELECT * FROM users WHERE email = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select user by email: %w", err)
	}
	r.updateToken, err = db.Preparex(`
		UPDATE users SET refresh_token = ? WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare update refresh token: %w", err)
	}
	r.confirm, err = db.Preparex(`
		UPDATE users SET confirmed = TRUE WHERE email = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare confirm email: %w", err)
	}
	r.updateAvatar, err = db.Preparex(`
		UPDATE users SET avatar = ? WHERE email = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare update avatar: %w", err)
	}
	return r, nil
}

// GetByEmail returns the user registered under the given email address, or
// nil when no such account exists.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.selectByEmail.GetContext(ctx, &user, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// Create inserts a new user with the given credentials and returns the
// freshly stored record, including the database-assigned id and creation
// timestamp.
func (r *UserRepository) Create(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	result, err := r.insert.ExecContext(ctx, username, email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user id: %w", err)
	}
	var user model.User
	if err := r.selectByID.GetContext(ctx, &user, id); err != nil {
		return nil, fmt.Errorf("reload created user: %w", err)
	}
	return &user, nil
}

// UpdateRefreshToken stores the given refresh token on the user record.
// Passing nil clears the stored token, which invalidates the session.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, user *model.User, token *string) error {
	if _, err := r.updateToken.ExecContext(ctx, token, user.Id); err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	user.RefreshToken = token
	return nil
}

// ConfirmEmail marks the account registered under the given email address
// as confirmed.
func (r *UserRepository) ConfirmEmail(ctx context.Context, email string) error {
	if _, err := r.confirm.ExecContext(ctx, email); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	return nil
}

// UpdateAvatar stores the avatar URL on the account registered under the
// given email address and returns the updated record.
func (r *UserRepository) UpdateAvatar(ctx context.Context, email, url string) (*model.User, error) {
	if _, err := r.updateAvatar.ExecContext(ctx, url, email); err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return r.GetByEmail(ctx, email)
}
