package service

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/contactkeeper/contacts-service/internal/auth"
	"gitlab.com/contactkeeper/contacts-service/internal/model"
)

// currentUserKey is the gin context key under which the authenticated user
// is stored.
const currentUserKey = "currentUser"

// authRequired resolves the authenticated user from the bearer access token
// and aborts with 401 when that fails. The resolved user is cached so that
// repeated requests do not hit the database every time; cache trouble is
// logged and degrades to a database lookup, never to a failed request.
func (s *Service) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
			return
		}
		email, err := s.tokens.ParseScoped(parts[1], auth.ScopeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "could not validate credentials"})
			return
		}

		ctx := c.Request.Context()
		user, err := s.cache.Get(ctx, email)
		if err != nil {
			s.logger.Warn("User cache lookup failed", zap.String("email", email), zap.Error(err))
			user = nil
		}
		if user == nil {
			user, err = s.users.GetByEmail(ctx, email)
			if err != nil {
				log.Panicln(err)
			}
			if user == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "could not validate credentials"})
				return
			}
			if err := s.cache.Set(ctx, user); err != nil {
				s.logger.Warn("Failed to cache user", zap.String("email", email), zap.Error(err))
			}
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// currentUser returns the user placed into the context by authRequired.
func currentUser(c *gin.Context) *model.User {
	return c.MustGet(currentUserKey).(*model.User)
}

// CurrentUserID returns the id of the authenticated user once authRequired
// has run. The rate limiter keys its counters by it.
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return 0, false
	}
	return v.(*model.User).Id, true
}
