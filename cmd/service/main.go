package main

import (
	"log"
	"net/http"
	"strconv"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/contactkeeper/contacts-service/internal/auth"
	"gitlab.com/contactkeeper/contacts-service/internal/config"
	"gitlab.com/contactkeeper/contacts-service/internal/logger"
	"gitlab.com/contactkeeper/contacts-service/internal/mailer"
	"gitlab.com/contactkeeper/contacts-service/internal/service"
)

// Usage example on the command line:
// > DBUSER=dirk DBPWD=bullo92 JWT_SECRET=changeme GIN_MODE=release GIN_LOGGING=OFF go run main.go
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal(err)
	}

	encoding := "json"
	if cfg.Env == "development" {
		encoding = "console"
	}
	zapLogger, err := logger.New(cfg.LogLevel, encoding)
	if err != nil {
		log.Fatal(err)
	}
	defer zapLogger.Sync()

	sqlDB := service.CreateDatabase(cfg)
	defer sqlDB.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	cache := auth.NewRedisUserCache(redisClient, zapLogger)

	var mail mailer.Mailer
	if cfg.MailHost != "" {
		mail = mailer.NewSMTP(cfg.MailHost, cfg.MailPort, cfg.MailUsername, cfg.MailPassword,
			cfg.MailFrom, cfg.BaseURL, zapLogger)
	} else {
		zapLogger.Warn("No MAIL_HOST configured, confirmation mails are only logged")
		mail = mailer.NewLog(zapLogger)
	}

	svc, err := service.New(sqlDB, cfg, tokens, cache, mail, zapLogger)
	if err != nil {
		log.Fatal(err)
	}

	router := svc.SetupHttpRouter(rateLimitMiddleware(cfg, redisClient, zapLogger))
	zapLogger.Info("Starting contacts service", zap.String("port", cfg.ServerPort))
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal(err)
	}
}

// rateLimitMiddleware caps how often a client may hit the guarded contact
// endpoints. The counters live in Redis, keyed by the authenticated user's
// id (the auth middleware runs first on those routes) and by client IP as a
// fallback, so all instances of the service enforce the same budget.
func rateLimitMiddleware(cfg *config.Config, redisClient *redis.Client, zapLogger *zap.Logger) gin.HandlerFunc {
	store := ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: redisClient,
		Rate:        cfg.RateLimitWindow,
		Limit:       uint(cfg.RateLimit),
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			zapLogger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
				zap.Time("resetTime", info.ResetTime),
			)
			retryAfter := int(time.Until(info.ResetTime).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "too many requests, try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			if id, ok := service.CurrentUserID(c); ok {
				return "user:" + strconv.FormatInt(id, 10)
			}
			return c.ClientIP()
		},
	})
}
