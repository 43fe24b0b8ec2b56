package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/remboglow/facefit/internal/analysis"
	"github.com/remboglow/facefit/internal/api/docs"
	"github.com/remboglow/facefit/internal/api/handler"
	"github.com/remboglow/facefit/internal/api/middleware"
	"github.com/remboglow/facefit/internal/catalog"
	"github.com/remboglow/facefit/internal/facegate"
	"github.com/remboglow/facefit/internal/ledger"
	"github.com/remboglow/facefit/internal/normalizer"
	"github.com/remboglow/facefit/internal/payment"
	"github.com/remboglow/facefit/internal/repository"
	"github.com/remboglow/facefit/internal/service"
	"github.com/remboglow/facefit/internal/store"
)

type Dependencies struct {
	Analyzer        analysis.Analyzer
	Gate            facegate.Gate
	Gateway         payment.Gateway
	DB              *pgxpool.Pool
	CanonicalURL    string
	PremiumPriceKES int
	FreeUploadLimit int
	AnalyzeTimeout  time.Duration
}

type Router struct {
	app                 *fiber.App
	logger              *slog.Logger
	deps                *Dependencies
	rateLimiter         *middleware.RateLimiter
	cancelCleanupWorker context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Face-Fit API",
		BodyLimit:    service.MaxUploadBytes + 1024*1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: false,
	}))

	// Swagger documentation (no session required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no session required)
	healthHandler := handler.NewHealthHandler(r.deps.pinger())
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Only configure stateful routes if dependencies were provided
	if r.deps == nil {
		return
	}

	// Anonymous identity cookies come before everything user-scoped
	r.app.Use(middleware.Session())

	// Rate limiting (per anonymous user) - must come after the session
	// middleware so the identity cookie is the key
	r.rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	r.app.Use(r.rateLimiter.Handler())

	// State stores: durable survives sessions, session-scoped expires
	durable := store.NewDurable(r.deps.DB)
	sessionStore := store.NewSession(r.deps.DB)

	// Start the expired-session-state cleanup worker
	cleanupWorker := store.NewWorker(sessionStore, r.logger, time.Hour)
	workerCtx, cancel := context.WithCancel(context.Background())
	r.cancelCleanupWorker = cancel
	go cleanupWorker.Run(workerCtx)

	// Usage ledger
	usageLedger := ledger.New(durable, sessionStore, r.logger)
	if r.deps.FreeUploadLimit > 0 {
		usageLedger = usageLedger.WithLimit(r.deps.FreeUploadLimit)
	}

	// Payment flow
	paymentService := payment.NewService(r.deps.Gateway, usageLedger, sessionStore, r.deps.CanonicalURL, r.logger)
	if r.deps.PremiumPriceKES > 0 {
		paymentService = paymentService.WithAmount(r.deps.PremiumPriceKES)
	}

	// Analysis pipeline
	productCatalog := catalog.NewStatic()
	norm := normalizer.New(productCatalog, r.logger)
	analysisRepo := repository.NewAnalysisRepository(r.deps.DB)

	orchestrator := service.NewOrchestrator(
		r.deps.Analyzer,
		norm,
		r.deps.Gate,
		usageLedger,
		paymentService,
		analysisRepo,
		r.logger,
	)
	if r.deps.AnalyzeTimeout > 0 {
		orchestrator = orchestrator.WithTimeout(r.deps.AnalyzeTimeout)
	}

	routineService := service.NewRoutineService(r.deps.Analyzer, norm, analysisRepo, r.logger)

	// Handlers
	analysisHandler := handler.NewAnalysisHandler(orchestrator, analysisRepo, routineService, r.logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, usageLedger, orchestrator, r.logger)

	// Checkout return leg lives outside /v1: the gateway redirects the
	// browser here, not an API client
	r.app.Get("/pay/callback", paymentHandler.Callback)

	v1 := r.app.Group("/v1")

	// Analysis routes
	v1.Post("/analyses/image", analysisHandler.SelectImage)
	v1.Post("/analyses", analysisHandler.Analyze)
	v1.Get("/analyses/current", analysisHandler.Current)
	v1.Get("/analyses/:id", analysisHandler.Get)
	v1.Get("/analyses", analysisHandler.List)
	v1.Delete("/analyses/:id", analysisHandler.Delete)
	v1.Delete("/analyses", analysisHandler.DeleteAll)
	v1.Post("/analyses/reset", analysisHandler.Reset)

	// Routine routes
	v1.Post("/routines", analysisHandler.GenerateRoutine)

	// Payment and usage routes
	v1.Post("/access", paymentHandler.RequestAccess)
	v1.Get("/usage", paymentHandler.GetUsage)
	v1.Post("/usage/just-paid", paymentHandler.ConsumeJustPaid)
}

// pinger adapts the optional pool into the health handler's dependency.
func (d *Dependencies) pinger() handler.Pinger {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop session cleanup worker
	if r.cancelCleanupWorker != nil {
		r.cancelCleanupWorker()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
