package service

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gitlab.com/contactkeeper/contacts-service/internal/model"
	apimodel "gitlab.com/contactkeeper/contacts-service/pkg/model"
)

// listContacts responds with a page of the caller's contacts as JSON.
//
// The URL parameter 'skip' specifies how many contacts are skipped in the
// beginning; 'limit' caps how many are returned (default 30). A limit of 0
// returns an empty list, not everything. The rows come back in storage
// order without a sort key.
//
// REST API calls:
//
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts"
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts?skip=60&limit=20"
func (s *Service) listContacts(c *gin.Context) {
	skip, limit, ok := parseSkipAndLimit(c)
	if !ok {
		return
	}
	contacts, err := s.contacts.List(c.Request.Context(), currentUser(c), skip, limit)
	if err != nil {
		log.Panicln(err)
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// parseSkipAndLimit inspects the URL parameters and determines values for
// skip and limit of the result page. Both must be non-negative integers.
func parseSkipAndLimit(c *gin.Context) (skip int, limit int, success bool) {
	var err error
	skip, err = strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid skip parameter"})
		return 0, 0, false
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "30"))
	if err != nil || limit < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid limit parameter"})
		return 0, 0, false
	}
	return skip, limit, true
}

// findContacts responds with the caller's contacts matching one search
// criterion. The URL parameters 'first_name', 'last_name', and 'email' are
// checked in that order and only the first non-empty one is applied. A
// request without any criterion is answered with NOT FOUND, while an
// executed search that matches nothing returns an empty list.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts/find?first_name=Alice"
func (s *Service) findContacts(c *gin.Context) {
	contacts, err := s.contacts.FindBy(c.Request.Context(), currentUser(c),
		c.Query("first_name"), c.Query("last_name"), c.Query("email"))
	if errors.Is(err, model.ErrNoSearchCriteria) {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contacts not found"})
		return
	}
	if err != nil {
		log.Panicln(err)
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// congratulate responds with the caller's contacts whose birthday falls
// within the next seven days, today included.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts/congratulate"
func (s *Service) congratulate(c *gin.Context) {
	contacts, err := s.contacts.BirthdayWindow(c.Request.Context(), currentUser(c), time.Now())
	if err != nil {
		log.Panicln(err)
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// getContact locates the caller's contact whose ID matches the id parameter
// of the request URL, then returns that contact as a response. A contact
// owned by another user is reported as NOT FOUND, indistinguishable from a
// contact that does not exist.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" http://localhost:8080/api/contacts/56
func (s *Service) getContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, err := s.contacts.GetByID(c.Request.Context(), currentUser(c), id)
	if err != nil {
		log.Panicln(err)
	}
	if contact == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// parseID inspects the id parameter of the request URL. A non-numeric id is
// answered with NOT FOUND, like an id that matches nothing.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// createContact inserts the contact specified in the request's JSON for the
// caller. It responds with the full contact data including the newly
// assigned id. The birthday, when present, must be a DD-MM-YYYY string.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts --request "POST" --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"first_name": "Hans", "last_name": "Wurst", "email": "hans@example.com", "phone": "0815", "birthday": "02-03-1969"}'
func (s *Service) createContact(c *gin.Context) {
	var body apimodel.ContactRequest
	if err := c.BindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	contact, err := s.contacts.Create(c.Request.Context(), currentUser(c), body)
	if errors.Is(err, model.ErrMalformedBirthday) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid birthday, expected DD-MM-YYYY"})
		return
	}
	if err != nil {
		log.Panicln(err)
	}
	c.IndentedJSON(http.StatusCreated, contact)
}

// updateContact replaces every field of the caller's contact whose ID
// matches the id parameter of the request URL with the values from the
// JSON, and finally responds with the new version of the contact. This is a
// full replacement: the birthday is required here even though createContact
// accepts its absence.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/56 --request "PUT" --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"first_name": "Hans", "last_name": "Wurst", "email": "hans@example.com", "phone": "81970", "birthday": "02-03-1969"}'
func (s *Service) updateContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body apimodel.ContactRequest
	if err := c.BindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	contact, err := s.contacts.Update(c.Request.Context(), currentUser(c), id, body)
	if errors.Is(err, model.ErrMalformedBirthday) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid birthday, expected DD-MM-YYYY"})
		return
	}
	if err != nil {
		log.Panicln(err)
	}
	if contact == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// deleteContact deletes the caller's contact whose ID matches the id
// parameter of the request URL and responds with the deleted contact's
// prior state. Deleting the same id again is answered with NOT FOUND.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/56 --request "DELETE" --header "Authorization: Bearer $TOKEN"
func (s *Service) deleteContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, err := s.contacts.Remove(c.Request.Context(), currentUser(c), id)
	if err != nil {
		log.Panicln(err)
	}
	if contact == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}
