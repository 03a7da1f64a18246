// Package service wires the REST API of the contacts service: the gin
// router, the authentication middleware, and the HTTP handlers on top of
// the repositories.
package service

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"gitlab.com/contactkeeper/contacts-service/internal/auth"
	"gitlab.com/contactkeeper/contacts-service/internal/config"
	"gitlab.com/contactkeeper/contacts-service/internal/mailer"
	"gitlab.com/contactkeeper/contacts-service/internal/repository"
)

// Service carries the dependencies of the HTTP handlers.
type Service struct {
	users    *repository.UserRepository
	contacts *repository.ContactRepository
	tokens   *auth.TokenManager
	cache    auth.UserCache
	mail     mailer.Mailer
	cfg      *config.Config
	logger   *zap.Logger
}

// CreateDatabase initializes and returns a database connection from the
// configured DSN.
func CreateDatabase(cfg *config.Config) *sql.DB {
	sqlDB, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	return sqlDB
}

// New builds the service on the specified sql database. The database
// argument can be a real database for production use or a mock database
// within unit tests; all statements are prepared up front.
func New(sqlDB *sql.DB, cfg *config.Config, tokens *auth.TokenManager, cache auth.UserCache,
	mail mailer.Mailer, logger *zap.Logger) (*Service, error) {
	db := sqlx.NewDb(sqlDB, "mysql")
	users, err := repository.NewUserRepository(db)
	if err != nil {
		return nil, fmt.Errorf("user repository: %w", err)
	}
	contacts, err := repository.NewContactRepository(db)
	if err != nil {
		return nil, fmt.Errorf("contact repository: %w", err)
	}
	return &Service{
		users:    users,
		contacts: contacts,
		tokens:   tokens,
		cache:    cache,
		mail:     mail,
		cfg:      cfg,
		logger:   logger.Named("Service"),
	}, nil
}

// SetupHttpRouter initializes the REST API router and registers all
// endpoints. The rateLimit middleware guards the contact list and write
// endpoints; passing nil disables limiting, which the tests use.
func (s *Service) SetupHttpRouter(rateLimit gin.HandlerFunc) *gin.Engine {
	var router *gin.Engine
	if strings.EqualFold(os.Getenv("GIN_LOGGING"), "off") {
		fmt.Println("Turning off HTTP request logging.")
		router = gin.New()
	} else {
		router = gin.Default()
	}
	if rateLimit == nil {
		rateLimit = func(c *gin.Context) { c.Next() }
	}
	if origins := s.cfg.AllowedOrigins(); len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	router.GET("/healthz", healthz)
	router.Static("/static/avatars", s.cfg.AvatarDir)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.signup)
	authGroup.POST("/login", s.login)
	authGroup.GET("/refresh_token", s.refreshToken)
	authGroup.GET("/confirmed_email/:token", s.confirmedEmail)
	authGroup.POST("/request_email", s.requestEmail)

	users := api.Group("/users", s.authRequired())
	users.GET("/me", s.me)
	users.PATCH("/avatar", s.updateAvatar)

	contacts := api.Group("/contacts", s.authRequired())
	contacts.GET("", rateLimit, s.listContacts)
	contacts.GET("/find", s.findContacts)
	contacts.GET("/congratulate", s.congratulate)
	contacts.GET("/:id", s.getContact)
	contacts.POST("", rateLimit, s.createContact)
	contacts.PUT("/:id", rateLimit, s.updateContact)
	contacts.DELETE("/:id", rateLimit, s.deleteContact)

	return router
}

// healthz reports liveness. Used by the wait-until-available helper and by
// container orchestration.
func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
