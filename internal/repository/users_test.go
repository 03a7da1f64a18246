package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
)

var userCreatedAt = time.Date(2023, time.January, 15, 12, 0, 0, 0, time.UTC)

// newUserRepository builds a UserRepository on a mock database, expecting
// all statements to be prepared.
func newUserRepository(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectPrepare("INSERT INTO users")
	mock.ExpectPrepare("SELECT \\* FROM users WHERE id = \\?")
	mock.ExpectPrepare("SELECT \\* FROM users WHERE email = \\?")
	mock.ExpectPrepare("UPDATE users SET refresh_token")
	mock.ExpectPrepare("UPDATE users SET confirmed")
	mock.ExpectPrepare("UPDATE users SET avatar")

	repository, err := NewUserRepository(sqlx.NewDb(db, "mysql"))
	if err != nil {
		t.Fatalf("could not prepare user statements: %s", err)
	}
	return repository, mock
}

func userRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{
		"id", "username", "email", "password_hash", "created_at", "avatar", "refresh_token", "confirmed",
	})
}

// TestGetByEmail verifies that an existing account comes back fully
// populated.
func TestGetByEmail(t *testing.T) {
	repository, mock := newUserRepository(t)

	rows := userRows(mock).
		AddRow(7, "alice", "alice@example.com", "hash", userCreatedAt, nil, nil, true)
	mock.ExpectQuery("SELECT \\* FROM users WHERE email = \\?").
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	user, err := repository.GetByEmail(context.Background(), "alice@example.com")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), user.Id)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.Confirmed)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestGetByEmailUnknown verifies that an unknown address yields nil without
// an error.
func TestGetByEmailUnknown(t *testing.T) {
	repository, mock := newUserRepository(t)

	mock.ExpectQuery("SELECT \\* FROM users WHERE email = \\?").
		WithArgs("nobody@example.com").
		WillReturnRows(userRows(mock))

	user, err := repository.GetByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestCreateUser verifies that the insert is followed by a reload of the
// stored record, so database defaults like the creation timestamp and the
// unconfirmed flag land on the result.
func TestCreateUser(t *testing.T) {
	repository, mock := newUserRepository(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hash").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("SELECT \\* FROM users WHERE id = \\?").
		WithArgs(int64(7)).
		WillReturnRows(userRows(mock).
			AddRow(7, "alice", "alice@example.com", "hash", userCreatedAt, nil, nil, false))

	user, err := repository.Create(context.Background(), "alice", "alice@example.com", "hash")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), user.Id)
	assert.Equal(t, userCreatedAt, user.CreatedAt)
	assert.False(t, user.Confirmed)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestUpdateRefreshToken verifies that the token is stored and mirrored on
// the in-memory record.
func TestUpdateRefreshToken(t *testing.T) {
	repository, mock := newUserRepository(t)

	user, token := *owner, "fresh-token"
	mock.ExpectExec("UPDATE users SET refresh_token").
		WithArgs(token, user.Id).
		WillReturnResult(sqlmock.NewResult(-1, 1))

	err := repository.UpdateRefreshToken(context.Background(), &user, &token)
	assert.NoError(t, err)
	assert.Equal(t, token, *user.RefreshToken)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestClearRefreshToken verifies that a nil token clears the stored one.
func TestClearRefreshToken(t *testing.T) {
	repository, mock := newUserRepository(t)

	user, stale := *owner, "stale-token"
	user.RefreshToken = &stale
	mock.ExpectExec("UPDATE users SET refresh_token").
		WithArgs(nil, user.Id).
		WillReturnResult(sqlmock.NewResult(-1, 1))

	err := repository.UpdateRefreshToken(context.Background(), &user, nil)
	assert.NoError(t, err)
	assert.Nil(t, user.RefreshToken)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestConfirmEmail verifies that the confirmed flag update runs against the
// given address.
func TestConfirmEmail(t *testing.T) {
	repository, mock := newUserRepository(t)

	mock.ExpectExec("UPDATE users SET confirmed").
		WithArgs("alice@example.com").
		WillReturnResult(sqlmock.NewResult(-1, 1))

	err := repository.ConfirmEmail(context.Background(), "alice@example.com")
	assert.NoError(t, err)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestUpdateAvatar verifies that the avatar URL is stored and the updated
// record comes back.
func TestUpdateAvatar(t *testing.T) {
	repository, mock := newUserRepository(t)

	url := "http://localhost:8080/static/avatars/stored.png"
	mock.ExpectExec("UPDATE users SET avatar").
		WithArgs(url, "alice@example.com").
		WillReturnResult(sqlmock.NewResult(-1, 1))
	mock.ExpectQuery("SELECT \\* FROM users WHERE email = \\?").
		WithArgs("alice@example.com").
		WillReturnRows(userRows(mock).
			AddRow(7, "alice", "alice@example.com", "hash", userCreatedAt, url, nil, true))

	user, err := repository.UpdateAvatar(context.Background(), "alice@example.com", url)
	assert.NoError(t, err)
	assert.Equal(t, url, *user.Avatar)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
