package service

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// me responds with the authenticated user's own account data.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" http://localhost:8080/api/users/me
func (s *Service) me(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, currentUser(c))
}

// updateAvatar stores the uploaded image as the authenticated user's
// avatar. The file arrives as the multipart form field 'file', is saved
// under a random name in the avatar directory, and is served from
// /static/avatars. The response carries the updated user record.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/users/avatar --request "PATCH" --header "Authorization: Bearer $TOKEN" --form "file=@portrait.png"
func (s *Service) updateAvatar(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "no file provided"})
		return
	}
	if err := os.MkdirAll(s.cfg.AvatarDir, 0o755); err != nil {
		log.Panicln(err)
	}
	name := uuid.NewString() + filepath.Ext(file.Filename)
	if err := c.SaveUploadedFile(file, filepath.Join(s.cfg.AvatarDir, name)); err != nil {
		log.Panicln(err)
	}
	url := s.cfg.BaseURL + "/static/avatars/" + name

	user := currentUser(c)
	updated, err := s.users.UpdateAvatar(c.Request.Context(), user.Email, url)
	if err != nil {
		log.Panicln(err)
	}
	if err := s.cache.Set(c.Request.Context(), updated); err != nil {
		s.logger.Warn("Failed to refresh cached user", zap.String("email", user.Email), zap.Error(err))
	}
	c.IndentedJSON(http.StatusOK, updated)
}
