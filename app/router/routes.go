// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"slices"
	"time"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/app/handlers"
	"github.com/amirphl/docflow/app/middleware"
	"github.com/amirphl/docflow/config"
	"github.com/amirphl/docflow/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// HealthCheck reports the state of one dependency
type HealthCheck func(ctx context.Context) error

// Handlers groups every HTTP handler served by the router
type Handlers struct {
	Documents  *handlers.DocumentHandler
	Tracking   *handlers.TrackingHandler
	Signatures *handlers.SignatureHandler
	Reminders  *handlers.ReminderHandler
	Reports    *handlers.ReportHandler
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app          *fiber.App
	cfg          *config.Config
	handlers     Handlers
	auth         *middleware.AuthMiddleware
	healthChecks map[string]HealthCheck
	accessLog    io.Writer
}

// NewFiberRouter creates a new Fiber router. accessLog may be nil to disable access logging.
func NewFiberRouter(cfg *config.Config, h Handlers, auth *middleware.AuthMiddleware, healthChecks map[string]HealthCheck, accessLog io.Writer) *FiberRouter {
	app := fiber.New(fiber.Config{
		AppName:      "Docflow API",
		ServerHeader: "Docflow",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:          app,
		cfg:          cfg,
		handlers:     h,
		auth:         auth,
		healthChecks: healthChecks,
		accessLog:    accessLog,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Public links: the token is the capability, so these get a tighter limit
	publicLimit := r.rateLimiter(r.cfg.Security.PublicRateLimit)
	r.app.Get("/view/:token", publicLimit, r.handlers.Tracking.PublicView)
	r.app.Get("/sign/:token", publicLimit, r.handlers.Signatures.PublicGet)
	r.app.Post("/sign/:token/respond", publicLimit, r.handlers.Signatures.PublicRespond)

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting, no auth)
	api.Get("/health", r.healthCheck)

	protected := api.Group("", r.rateLimiter(r.cfg.Security.GlobalRateLimit), r.auth.Authenticate())

	documents := protected.Group("/documents")
	documents.Post("/", r.handlers.Documents.Create)
	documents.Get("/", r.handlers.Documents.List)
	documents.Get("/:id", r.handlers.Documents.Get)
	documents.Patch("/:id", r.handlers.Documents.Update)
	documents.Post("/:id/transition", r.handlers.Documents.Transition)
	documents.Post("/:id/tracking", r.handlers.Tracking.Create)
	documents.Get("/:id/tracking", r.handlers.Tracking.Get)
	documents.Get("/:id/views", r.handlers.Tracking.ListViews)
	documents.Post("/:id/signatures", r.handlers.Signatures.Send)
	documents.Get("/:id/signatures", r.handlers.Signatures.ListByDocument)
	documents.Get("/:id/signature-status", r.handlers.Signatures.Status)

	protected.Get("/tracking/recent-views", r.handlers.Tracking.ListRecentViews)

	signatures := protected.Group("/signatures")
	signatures.Get("/pending", r.handlers.Signatures.ListPending)
	signatures.Post("/:id/remind", r.handlers.Signatures.Remind)
	signatures.Post("/:id/respond", r.handlers.Signatures.Respond)

	reminders := protected.Group("/reminders")
	reminders.Get("/", r.handlers.Reminders.List)
	reminders.Get("/counts", r.handlers.Reminders.Counts)

	reports := protected.Group("/reports")
	reports.Get("/kpis", r.handlers.Reports.KPIs)
	reports.Get("/documents", r.handlers.Reports.Documents)
	reports.Get("/documents/export", r.handlers.Reports.Export)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

func (r *FiberRouter) rateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	})
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				requestid.FromContext(c),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                r.cfg.Security.HSTSMaxAge,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	if r.accessLog != nil {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Stream:     r.accessLog,
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/health" || c.Path() == r.cfg.Metrics.Path
			},
		}))
	}

	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(r.securityMiddleware)
}

func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	if slices.Contains(r.cfg.Security.IPBlacklist, c.IP()) {
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Access denied from this IP address",
			Error: dto.ErrorDetail{
				Code: "ACCESS_DENIED",
			},
		})
	}

	return c.Next()
}

func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// healthCheck pings every registered dependency
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: utils.UTCNow().Format(time.RFC3339),
		Checks:    make(map[string]string, len(r.healthChecks)),
	}
	for name, check := range r.healthChecks {
		if err := check(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := fiber.StatusOK
	message := "Service is healthy"
	if resp.Status != "ok" {
		status = fiber.StatusServiceUnavailable
		message = "Service is degraded"
	}
	return c.Status(status).JSON(dto.APIResponse{
		Success: status == fiber.StatusOK,
		Message: message,
		Data:    resp,
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errorCode = "REQUEST_ERROR"
		}
	}

	log.Printf("Error %d: %v", code, err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}
