package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ticket-scanner/config"
	"ticket-scanner/handlers"
	"ticket-scanner/internal/services/ticketing"
	"ticket-scanner/monitoring"
	"ticket-scanner/security"
	"ticket-scanner/services"
	"ticket-scanner/utils"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	_ "ticket-scanner/migrations"
)

func main() {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Create context for background tasks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the ticketing backend
	backend, err := ticketing.New(ctx, &cfg.Ticketing)
	if err != nil {
		log.Fatalf("ticketing backend connect: %v", err)
	}

	// Initialize PubNub (live outcome feed for dashboards)
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	// Initialize services
	sessionService := services.NewSessionService(cfg)
	scanService := services.NewScanService(sessionService, backend, redisClient, pn, cfg)
	offlineService := services.NewOfflineService(redisClient, backend, cfg.OfflineSnapshotTTL)

	// Subscribe to ticket lifecycle pushes and fold them into the snapshot
	statusFeed, err := ticketing.NewStatusFeed(ctx, &cfg.Ticketing)
	if err != nil {
		log.Fatalf("ticket status feed: %v", err)
	}
	if statusFeed != nil {
		updates := make(chan *ticketing.TicketStatusUpdate, 64)
		statusFeed.SetUpdateChannel(updates)
		defer statusFeed.Close()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case update := <-updates:
					if err := offlineService.ApplyStatusUpdate(ctx, update); err != nil {
						slog.Error("failed to apply ticket status update",
							"ticket_id", update.TicketID, "error", err)
					}
				}
			}
		}()
	}

	// Initialize handlers
	scanHandler := handlers.NewScanHandler(app, scanService, sessionService)
	searchHandler := handlers.NewSearchHandler(app, backend, scanService)
	listHandler := handlers.NewListHandler(app, backend)
	validatorHandler := handlers.NewValidatorHandler(app, backend)
	offlineHandler := handlers.NewOfflineHandler(app, offlineService, sessionService)

	rateLimiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go sessionService.CleanupIdleSessions(ctx, cfg.CleanupInterval)

	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient, sessionService)
		go serveMetrics(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	// Register routes
	app.OnBeforeServe().Add(func(e *core.ServeEvent) error {
		// Scan workflow endpoints
		e.Router.POST("/api/v1/sessions", scanHandler.OpenSession)
		e.Router.POST("/api/v1/sessions/close", scanHandler.CloseSession)
		e.Router.POST("/api/v1/scan", scanHandler.HandleScan, rateLimiter.ScanRateLimit())
		e.Router.POST("/api/v1/scan/dismiss", scanHandler.Dismiss)

		// Search and manual validation
		e.Router.GET("/api/v1/events/:eventId/availability", searchHandler.GetAvailability)
		e.Router.GET("/api/v1/tickets/search", searchHandler.SearchTickets, rateLimiter.SearchRateLimit())
		e.Router.POST("/api/v1/tickets/:ticketId/validate", searchHandler.ValidateManual)

		// Guest lists
		e.Router.GET("/api/v1/events/:eventId/lists", listHandler.GetEventLists)
		e.Router.GET("/api/v1/lists/lookup", listHandler.LookupList)
		e.Router.GET("/api/v1/lists/:listId/participants", listHandler.GetParticipants)
		e.Router.POST("/api/v1/lists/:listId/participants/:participantId/checkin", listHandler.CheckInParticipant)

		// Validator roster
		e.Router.GET("/api/v1/events/:eventId/validators", validatorHandler.GetValidators)
		e.Router.POST("/api/v1/events/:eventId/validators", validatorHandler.InviteValidator)
		e.Router.DELETE("/api/v1/validators/:validatorId", validatorHandler.RemoveValidator)

		// Offline workflow
		e.Router.POST("/api/v1/offline/events/:eventId/download", offlineHandler.DownloadEventData)
		e.Router.POST("/api/v1/offline/scan", offlineHandler.HandleOfflineScan, rateLimiter.ScanRateLimit())
		e.Router.POST("/api/v1/offline/events/:eventId/sync", offlineHandler.SyncPending)
		e.Router.GET("/api/v1/offline/events/:eventId/pending", offlineHandler.GetPendingCount)

		// Health check
		e.Router.GET("/health", func(c echo.Context) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return c.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return c.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return nil
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// serveMetrics exposes prometheus metrics on a dedicated port.
func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("Metrics server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
