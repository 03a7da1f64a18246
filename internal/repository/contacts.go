// Package repository implements the persistence layer of the contacts
// service on top of sqlx. Every contact operation filters by the owning
// user's id, so a contact can never be read or changed through another
// user's identity, no matter which identifier is supplied.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gitlab.com/contactkeeper/contacts-service/internal/birthday"
	"gitlab.com/contactkeeper/contacts-service/internal/model"
	apimodel "gitlab.com/contactkeeper/contacts-service/pkg/model"
)

// ContactRepository runs the contact queries against the database. All
// statements are prepared once at construction time; prepared statements
// offer a significant speed increase if executed many times.
type ContactRepository struct {
	db            *sqlx.DB
	insert        *sqlx.NamedStmt
	selectByID    *sqlx.Stmt
	selectPage    *sqlx.Stmt
	selectAll     *sqlx.Stmt
	selectByFirst *sqlx.Stmt
	selectByLast  *sqlx.Stmt
	selectByEmail *sqlx.Stmt
	update        *sqlx.Stmt
	delete        *sqlx.Stmt
}

// NewContactRepository prepares all contact statements on the given database
// handle. The handle can be a real database for production use or a mock
// database within unit tests.
func NewContactRepository(db *sqlx.DB) (*ContactRepository, error) {
	r := &ContactRepository{db: db}
	var err error
	r.insert, err = db.PrepareNamed(`
		INSERT INTO contacts (first_name, last_name, email, phone, birthday, user_id)
		VALUES (:first_name, :last_name, :email, :phone, :birthday, :user_id)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert contact: %w", err)
	}
	r.selectByID, err = db.Preparex(`
		SELECT * FROM contacts WHERE id = ? AND user_id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select contact by id: %w", err)
	}
	r.selectPage, err = db.Preparex(`
		SELECT * FROM contacts WHERE user_id = ? LIMIT ? OFFSET ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select contact page: %w", err)
	}
	r.selectAll, err = db.Preparex(`
		SELECT * FROM contacts WHERE user_id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select all contacts: %w", err)
	}
	r.selectByFirst, err = db.Preparex(`
		SELECT * FROM contacts WHERE first_name = ? AND user_id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select contacts by first name: %w", err)
	}
	r.selectByLast, err = db.Preparex(`
		SELECT * FROM contacts WHERE last_name = ? AND user_id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select contacts by last name: %w", err)
	}
	r.selectByEmail, err = db.Preparex(`
		SELECT * FROM contacts WHERE email = ? AND user_id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select contacts by email: %w", err)
	}
	r.update, err = db.Preparex(`
		UPDATE contacts SET first_name=?, last_name=?, email=?, phone=?, birthday=?
		WHERE id = ? AND user_id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare update contact: %w", err)
	}
	r.delete, err = db.Preparex(`
		DELETE FROM contacts WHERE id = ? AND user_id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare delete contact: %w", err)
	}
	return r, nil
}

// List returns the contacts owned by the user, skipping the first skip rows
// and returning at most limit of the remainder. The rows come back in the
// database's natural storage order; there is no sort key, so the order is
// not guaranteed stable across calls. A limit of zero yields an empty slice.
func (r *ContactRepository) List(ctx context.Context, user *model.User, skip, limit int) ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := r.selectPage.SelectContext(ctx, &contacts, user.Id, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// GetByID returns the contact with the given id if it exists and is owned
// by the user. The result is nil in every other case; a contact owned by
// somebody else looks exactly like a contact that does not exist.
func (r *ContactRepository) GetByID(ctx context.Context, user *model.User, contactID int64) (*model.Contact, error) {
	var contact model.Contact
	err := r.selectByID.GetContext(ctx, &contact, contactID, user.Id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact by id: %w", err)
	}
	return &contact, nil
}

// Create inserts a new contact owned by the user and returns it with the
// newly assigned id. The birthday is parsed from DD-MM-YYYY only when the
// field is present; a malformed date string fails the whole call.
func (r *ContactRepository) Create(ctx context.Context, user *model.User, body apimodel.ContactRequest) (*model.Contact, error) {
	var bday *time.Time
	if body.Birthday != "" {
		parsed, err := model.ParseBirthday(body.Birthday)
		if err != nil {
			return nil, err
		}
		bday = &parsed
	}
	contact := &model.Contact{
		FirstName: &body.FirstName,
		LastName:  &body.LastName,
		Email:     &body.Email,
		Phone:     &body.Phone,
		Birthday:  bday,
		UserId:    user.Id,
	}
	result, err := r.insert.ExecContext(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert contact id: %w", err)
	}
	contact.Id = id
	return contact, nil
}

// Update overwrites every field of an owned contact with the submitted
// values. This is a full replacement, not a partial patch. Unlike Create,
// the birthday is parsed unconditionally, so an absent or empty birthday
// fails the update. The result is nil, without any write, when no owned
// record matches.
func (r *ContactRepository) Update(ctx context.Context, user *model.User, contactID int64, body apimodel.ContactRequest) (*model.Contact, error) {
	contact, err := r.GetByID(ctx, user, contactID)
	if err != nil || contact == nil {
		return nil, err
	}
	bday, err := model.ParseBirthday(body.Birthday)
	if err != nil {
		return nil, err
	}
	contact.FirstName = &body.FirstName
	contact.LastName = &body.LastName
	contact.Email = &body.Email
	contact.Phone = &body.Phone
	contact.Birthday = &bday
	_, err = r.update.ExecContext(ctx,
		contact.FirstName, contact.LastName, contact.Email, contact.Phone, contact.Birthday,
		contactID, user.Id)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return contact, nil
}

// Remove deletes an owned contact and returns its prior state. The result
// is nil when no owned record matches, which makes a repeated delete an
// idempotent no-op rather than an error.
func (r *ContactRepository) Remove(ctx context.Context, user *model.User, contactID int64) (*model.Contact, error) {
	contact, err := r.GetByID(ctx, user, contactID)
	if err != nil || contact == nil {
		return nil, err
	}
	if _, err := r.delete.ExecContext(ctx, contactID, user.Id); err != nil {
		return nil, fmt.Errorf("delete contact: %w", err)
	}
	return contact, nil
}

// FindBy searches the user's contacts by exact first name, last name, or
// email. The filters are checked in that fixed order and only the first
// non-empty one executes; the others are ignored even when supplied. When
// all three are empty, FindBy returns ErrNoSearchCriteria, which is distinct
// from an executed filter that matches nothing (an empty slice, no error).
func (r *ContactRepository) FindBy(ctx context.Context, user *model.User, firstName, lastName, email string) ([]model.Contact, error) {
	var stmt *sqlx.Stmt
	var arg string
	switch {
	case firstName != "":
		stmt, arg = r.selectByFirst, firstName
	case lastName != "":
		stmt, arg = r.selectByLast, lastName
	case email != "":
		stmt, arg = r.selectByEmail, email
	default:
		return nil, model.ErrNoSearchCriteria
	}
	contacts := []model.Contact{}
	if err := stmt.SelectContext(ctx, &contacts, arg, user.Id); err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	return contacts, nil
}

// BirthdayWindow returns the user's contacts whose birthday falls within
// the next seven days, today included. It scans the entire owned set
// without pagination and applies the window filter in memory.
func (r *ContactRepository) BirthdayWindow(ctx context.Context, user *model.User, today time.Time) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if err := r.selectAll.SelectContext(ctx, &contacts, user.Id); err != nil {
		return nil, fmt.Errorf("load contacts for birthday window: %w", err)
	}
	return birthday.Upcoming(contacts, today), nil
}
