package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/mmaxwell0637/safetrack-fe/internal/config"
	"github.com/mmaxwell0637/safetrack-fe/internal/observability"
	apperrors "github.com/mmaxwell0637/safetrack-fe/pkg/util/errorutil"
)

// CodeRateLimited is returned once a client exceeds the request budget.
const CodeRateLimited = "RATE_LIMITED"

// MiddlewareConfig bundles dependencies for the global middleware chain.
type MiddlewareConfig struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	HTTP    config.HTTPConfig
	// LimiterStorage shares rate limit counters between instances. Nil keeps
	// them in process memory.
	LimiterStorage fiber.Storage
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(requestid.New(requestid.Config{ContextKey: observability.RequestIDLocalKey}))
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics))
	app.Use(helmet.New())
	app.Use(corsMiddleware(cfg.HTTP.CORSOrigin))
	if cfg.HTTP.RateLimitMax > 0 {
		app.Use(rateLimitMiddleware(cfg.HTTP, cfg.LimiterStorage))
	}
	if timeout := cfg.HTTP.RequestTimeout(); timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func corsMiddleware(origin string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     origin,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: origin != "*",
	})
}

func rateLimitMiddleware(cfg config.HTTPConfig, storage fiber.Storage) fiber.Handler {
	limiterCfg := limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/health")
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewDomainError(CodeRateLimited, "too many requests", http.StatusTooManyRequests, nil)
		},
	}
	if storage != nil {
		limiterCfg.Storage = storage
	}
	return limiter.New(limiterCfg)
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				body := fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}
				if len(domainErr.Details) > 0 {
					body["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= http.StatusInternalServerError {
					logger.Error("request failed",
						zap.String("path", c.Path()),
						zap.Error(domainErr))
				}
				err = c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
			}
		}()
		return c.Next()
	}
}
