package service

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/contactkeeper/contacts-service/internal/auth"
	"gitlab.com/contactkeeper/contacts-service/internal/model"
	apimodel "gitlab.com/contactkeeper/contacts-service/pkg/model"
)

// signup registers a new user account and sends the mailbox confirmation
// mail. An address that is already registered is answered with CONFLICT.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/auth/signup --request "POST" --header "Content-Type: application/json" --data '{"username": "alice", "email": "alice@example.com", "password": "secret123"}'
func (s *Service) signup(c *gin.Context) {
	var body apimodel.SignupRequest
	if err := c.BindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	ctx := c.Request.Context()

	existing, err := s.users.GetByEmail(ctx, body.Email)
	if err != nil {
		log.Panicln(err)
	}
	if existing != nil {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "account already exists"})
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		log.Panicln(err)
	}
	user, err := s.users.Create(ctx, body.Username, body.Email, hash)
	if err != nil {
		log.Panicln(err)
	}

	s.sendConfirmation(user)

	c.IndentedJSON(http.StatusCreated, gin.H{
		"user":   user,
		"detail": "User successfully created. Check your email for confirmation.",
	})
}

// sendConfirmation mails the confirmation link in the background. Delivery
// trouble is logged; the registration itself already succeeded.
func (s *Service) sendConfirmation(user *model.User) {
	token, err := s.tokens.NewEmailToken(user.Email)
	if err != nil {
		log.Panicln(err)
	}
	go func() {
		if err := s.mail.SendConfirmation(context.Background(), user.Email, user.Username, token); err != nil {
			s.logger.Error("Failed to send confirmation mail", zap.String("email", user.Email), zap.Error(err))
		}
	}()
}

// login verifies the credentials and responds with a fresh access/refresh
// token pair. Unknown addresses, unconfirmed mailboxes, and wrong passwords
// are all answered with UNAUTHORIZED.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/auth/login --request "POST" --header "Content-Type: application/json" --data '{"email": "alice@example.com", "password": "secret123"}'
func (s *Service) login(c *gin.Context) {
	var body apimodel.LoginRequest
	if err := c.BindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	ctx := c.Request.Context()

	user, err := s.users.GetByEmail(ctx, body.Email)
	if err != nil {
		log.Panicln(err)
	}
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid email"})
		return
	}
	if !user.Confirmed {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "email not confirmed"})
		return
	}
	if !auth.VerifyPassword(body.Password, user.PasswordHash) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid password"})
		return
	}

	s.issueTokenPair(c, user)
}

// refreshToken rotates the session: it validates the bearer refresh token
// against the one stored on the user record and responds with a new pair.
// Presenting a refresh token that does not match the stored one clears the
// stored token, so a stolen old token cannot be replayed.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $REFRESH_TOKEN" http://localhost:8080/api/auth/refresh_token
func (s *Service) refreshToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
		return
	}
	tokenString := parts[1]

	email, err := s.tokens.ParseScoped(tokenString, auth.ScopeRefresh)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "could not validate credentials"})
		return
	}
	ctx := c.Request.Context()
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		log.Panicln(err)
	}
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "could not validate credentials"})
		return
	}
	if user.RefreshToken == nil || *user.RefreshToken != tokenString {
		if err := s.users.UpdateRefreshToken(ctx, user, nil); err != nil {
			log.Panicln(err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid refresh token"})
		return
	}

	s.issueTokenPair(c, user)
}

// issueTokenPair creates an access/refresh pair for the user, stores the
// refresh token on the user record, and writes the token response.
func (s *Service) issueTokenPair(c *gin.Context, user *model.User) {
	access, err := s.tokens.NewAccessToken(user.Email)
	if err != nil {
		log.Panicln(err)
	}
	refresh, err := s.tokens.NewRefreshToken(user.Email)
	if err != nil {
		log.Panicln(err)
	}
	if err := s.users.UpdateRefreshToken(c.Request.Context(), user, &refresh); err != nil {
		log.Panicln(err)
	}
	c.IndentedJSON(http.StatusOK, apimodel.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	})
}

// confirmedEmail marks the mailbox behind a confirmation token as
// confirmed. The token comes from the link in the confirmation mail.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/auth/confirmed_email/$EMAIL_TOKEN
func (s *Service) confirmedEmail(c *gin.Context) {
	email, err := s.tokens.ParseScoped(c.Param("token"), auth.ScopeEmail)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "verification error"})
		return
	}
	ctx := c.Request.Context()
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		log.Panicln(err)
	}
	if user == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "verification error"})
		return
	}
	if user.Confirmed {
		c.IndentedJSON(http.StatusOK, gin.H{"message": "your email is already confirmed"})
		return
	}
	if err := s.users.ConfirmEmail(ctx, email); err != nil {
		log.Panicln(err)
	}
	if err := s.cache.Delete(ctx, email); err != nil {
		s.logger.Warn("Failed to evict cached user", zap.String("email", email), zap.Error(err))
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "email confirmed"})
}

// requestEmail re-sends the confirmation mail. The response is the same
// whether or not the address belongs to an account, so the endpoint cannot
// be used to probe for registered addresses.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/auth/request_email --request "POST" --header "Content-Type: application/json" --data '{"email": "alice@example.com"}'
func (s *Service) requestEmail(c *gin.Context) {
	var body apimodel.EmailRequest
	if err := c.BindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	user, err := s.users.GetByEmail(c.Request.Context(), body.Email)
	if err != nil {
		log.Panicln(err)
	}
	if user != nil && !user.Confirmed {
		s.sendConfirmation(user)
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "check your email for confirmation"})
}
