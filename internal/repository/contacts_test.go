package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"gitlab.com/contactkeeper/contacts-service/internal/model"
	apimodel "gitlab.com/contactkeeper/contacts-service/pkg/model"
)

var owner = &model.User{Id: 7, Username: "alice", Email: "alice@example.com"}

// newContactRepository builds a ContactRepository on a mock database,
// expecting all statements to be prepared.
func newContactRepository(t *testing.T) (*ContactRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectPrepare("INSERT INTO contacts")
	mock.ExpectPrepare("SELECT \\* FROM contacts WHERE id = \\? AND user_id = \\?")
	mock.ExpectPrepare("SELECT \\* FROM contacts WHERE user_id = \\? LIMIT \\? OFFSET \\?")
	mock.ExpectPrepare("SELECT \\* FROM contacts WHERE user_id = \\?")
	mock.ExpectPrepare("SELECT \\* FROM contacts WHERE first_name = \\? AND user_id = \\?")
	mock.ExpectPrepare("SELECT \\* FROM contacts WHERE last_name = \\? AND user_id = \\?")
	mock.ExpectPrepare("SELECT \\* FROM contacts WHERE email = \\? AND user_id = \\?")
	mock.ExpectPrepare("UPDATE contacts SET")
	mock.ExpectPrepare("DELETE FROM contacts")

	repository, err := NewContactRepository(sqlx.NewDb(db, "mysql"))
	if err != nil {
		t.Fatalf("could not prepare contact statements: %s", err)
	}
	return repository, mock
}

func contactRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{
		"id", "first_name", "last_name", "email", "phone", "birthday", "user_id",
	})
}

// TestListScopesToOwner verifies that paging parameters and the owner's id
// reach the page query unchanged.
func TestListScopesToOwner(t *testing.T) {
	repository, mock := newContactRepository(t)

	rows := contactRows(mock).
		AddRow(1, "Aaron", "Abbot", "aaron@example.com", "+420 111", nil, owner.Id)
	mock.ExpectQuery("SELECT \\* FROM contacts WHERE user_id = \\? LIMIT \\? OFFSET \\?").
		WithArgs(owner.Id, 2, 5).
		WillReturnRows(rows)

	contacts, err := repository.List(context.Background(), owner, 5, 2)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(contacts))
	assert.Equal(t, owner.Id, contacts[0].UserId)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestListLimitZero verifies that a limit of zero is passed through and
// yields an empty, non-nil slice.
func TestListLimitZero(t *testing.T) {
	repository, mock := newContactRepository(t)

	mock.ExpectQuery("SELECT \\* FROM contacts WHERE user_id = \\? LIMIT \\? OFFSET \\?").
		WithArgs(owner.Id, 0, 0).
		WillReturnRows(contactRows(mock))

	contacts, err := repository.List(context.Background(), owner, 0, 0)
	assert.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Equal(t, 0, len(contacts))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestGetByIDNotOwned verifies that a lookup matching no owned row returns
// nil without an error.
func TestGetByIDNotOwned(t *testing.T) {
	repository, mock := newContactRepository(t)

	mock.ExpectQuery("SELECT \\* FROM contacts WHERE id = \\? AND user_id = \\?").
		WithArgs(int64(56), owner.Id).
		WillReturnRows(contactRows(mock))

	contact, err := repository.GetByID(context.Background(), owner, 56)
	assert.NoError(t, err)
	assert.Nil(t, contact)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestCreateParsesBirthday verifies that a DD-MM-YYYY birthday is stored as
// the corresponding calendar date and the new id lands on the result.
func TestCreateParsesBirthday(t *testing.T) {
	repository, mock := newContactRepository(t)

	mock.ExpectExec("INSERT INTO contacts").
		WithArgs("Erika", "Mustermann", "erika@example.com", "+49 0815 4711",
			time.Date(1990, time.December, 25, 0, 0, 0, 0, time.UTC), owner.Id).
		WillReturnResult(sqlmock.NewResult(42, 1))

	contact, err := repository.Create(context.Background(), owner, apimodel.ContactRequest{
		FirstName: "Erika",
		LastName:  "Mustermann",
		Email:     "erika@example.com",
		Phone:     "+49 0815 4711",
		Birthday:  "25-12-1990",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), contact.Id)
	assert.Equal(t, time.Date(1990, time.December, 25, 0, 0, 0, 0, time.UTC), *contact.Birthday)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestCreateWithoutBirthday verifies that an absent birthday stays NULL.
func TestCreateWithoutBirthday(t *testing.T) {
	repository, mock := newContactRepository(t)

	mock.ExpectExec("INSERT INTO contacts").
		WithArgs("Erika", "Mustermann", "erika@example.com", "+49 0815 4711", nil, owner.Id).
		WillReturnResult(sqlmock.NewResult(43, 1))

	contact, err := repository.Create(context.Background(), owner, apimodel.ContactRequest{
		FirstName: "Erika",
		LastName:  "Mustermann",
		Email:     "erika@example.com",
		Phone:     "+49 0815 4711",
	})
	assert.NoError(t, err)
	assert.Nil(t, contact.Birthday)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestCreateMalformedBirthday verifies that a malformed date fails the call
// before any insert.
func TestCreateMalformedBirthday(t *testing.T) {
	repository, mock := newContactRepository(t)

	_, err := repository.Create(context.Background(), owner, apimodel.ContactRequest{
		FirstName: "Erika",
		Birthday:  "1990-12-25",
	})
	assert.ErrorIs(t, err, model.ErrMalformedBirthday)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestUpdateMissingWritesNothing verifies that an update of an id matching
// no owned row returns nil and performs no write.
func TestUpdateMissingWritesNothing(t *testing.T) {
	repository, mock := newContactRepository(t)

	mock.ExpectQuery("SELECT \\* FROM contacts WHERE id = \\? AND user_id = \\?").
		WithArgs(int64(9999), owner.Id).
		WillReturnRows(contactRows(mock))

	contact, err := repository.Update(context.Background(), owner, 9999, apimodel.ContactRequest{
		FirstName: "Rudi",
		Birthday:  "13-04-1960",
	})
	assert.NoError(t, err)
	assert.Nil(t, contact)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestUpdateRequiresBirthday verifies that update, unlike create, rejects an
// absent birthday after the lookup but before the write.
func TestUpdateRequiresBirthday(t *testing.T) {
	repository, mock := newContactRepository(t)

	rows := contactRows(mock).
		AddRow(17, "Old", "Name", "old@example.com", "+1 000", nil, owner.Id)
	mock.ExpectQuery("SELECT \\* FROM contacts WHERE id = \\? AND user_id = \\?").
		WithArgs(int64(17), owner.Id).
		WillReturnRows(rows)

	_, err := repository.Update(context.Background(), owner, 17, apimodel.ContactRequest{
		FirstName: "Rudi",
	})
	assert.ErrorIs(t, err, model.ErrMalformedBirthday)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestRemoveReturnsPriorState verifies that a delete returns the contact as
// it was before the delete.
func TestRemoveReturnsPriorState(t *testing.T) {
	repository, mock := newContactRepository(t)

	rows := contactRows(mock).
		AddRow(42, "Erika", "Mustermann", "erika@example.com", "+49 0815 4711", nil, owner.Id)
	mock.ExpectQuery("SELECT \\* FROM contacts WHERE id = \\? AND user_id = \\?").
		WithArgs(int64(42), owner.Id).
		WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM contacts").
		WithArgs(int64(42), owner.Id).
		WillReturnResult(sqlmock.NewResult(-1, 1))

	contact, err := repository.Remove(context.Background(), owner, 42)
	assert.NoError(t, err)
	assert.Equal(t, "Erika", *contact.FirstName)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestRemoveTwice verifies that removing an id that matches nothing is a
// quiet no-op rather than an error.
func TestRemoveTwice(t *testing.T) {
	repository, mock := newContactRepository(t)

	mock.ExpectQuery("SELECT \\* FROM contacts WHERE id = \\? AND user_id = \\?").
		WithArgs(int64(42), owner.Id).
		WillReturnRows(contactRows(mock))

	contact, err := repository.Remove(context.Background(), owner, 42)
	assert.NoError(t, err)
	assert.Nil(t, contact)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestFindByPriority verifies that first name beats last name and email when
// several criteria are supplied.
func TestFindByPriority(t *testing.T) {
	repository, mock := newContactRepository(t)

	rows := contactRows(mock).
		AddRow(3, "Alice", "Adams", "alice.adams@example.com", "+420 333", nil, owner.Id)
	mock.ExpectQuery("SELECT \\* FROM contacts WHERE first_name = \\? AND user_id = \\?").
		WithArgs("Alice", owner.Id).
		WillReturnRows(rows)

	contacts, err := repository.FindBy(context.Background(), owner, "Alice", "Ignored", "ignored@example.com")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(contacts))
	assert.Equal(t, "Alice", *contacts[0].FirstName)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestFindByLastNameFallback verifies that the last name filter runs when
// the first name is empty.
func TestFindByLastNameFallback(t *testing.T) {
	repository, mock := newContactRepository(t)

	mock.ExpectQuery("SELECT \\* FROM contacts WHERE last_name = \\? AND user_id = \\?").
		WithArgs("Adams", owner.Id).
		WillReturnRows(contactRows(mock))

	contacts, err := repository.FindBy(context.Background(), owner, "", "Adams", "ignored@example.com")
	assert.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Equal(t, 0, len(contacts))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestFindByNoCriteria verifies that a search without any criterion is
// reported as such, without touching the database.
func TestFindByNoCriteria(t *testing.T) {
	repository, mock := newContactRepository(t)

	_, err := repository.FindBy(context.Background(), owner, "", "", "")
	assert.ErrorIs(t, err, model.ErrNoSearchCriteria)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestBirthdayWindowFiltersInMemory verifies that the full owned set is
// loaded and the window filter picks the birthdays within the next week.
func TestBirthdayWindowFiltersInMemory(t *testing.T) {
	repository, mock := newContactRepository(t)

	today := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	rows := contactRows(mock).
		AddRow(1, "Soon", "Celebrant", "soon@example.com", "+420 111",
			time.Date(1990, time.June, 3, 0, 0, 0, 0, time.UTC), owner.Id).
		AddRow(2, "Far", "Celebrant", "far@example.com", "+420 222",
			time.Date(1990, time.July, 1, 0, 0, 0, 0, time.UTC), owner.Id).
		AddRow(3, "Never", "Celebrant", "never@example.com", "+420 333", nil, owner.Id)
	mock.ExpectQuery("SELECT \\* FROM contacts WHERE user_id = \\?").
		WithArgs(owner.Id).
		WillReturnRows(rows)

	contacts, err := repository.BirthdayWindow(context.Background(), owner, today)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(contacts))
	assert.Equal(t, int64(1), contacts[0].Id)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
