package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/estatedesk/backoffice/internal/config"
	"github.com/estatedesk/backoffice/internal/database"
	"github.com/estatedesk/backoffice/internal/handlers"
	"github.com/estatedesk/backoffice/internal/jobs"
	"github.com/estatedesk/backoffice/internal/middleware"
	"github.com/estatedesk/backoffice/internal/queue"
	"github.com/estatedesk/backoffice/internal/routes"
	"github.com/estatedesk/backoffice/internal/services/commission"
	"github.com/estatedesk/backoffice/internal/services/network"
)

func main() {
	// Initialize configuration
	cfg := config.LoadConfig()

	// Initialize database
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Create the redis-backed job queue and the stats refresher riding on it
	redisQueue := queue.NewRedisQueue(redisClient)
	statsRefresher := queue.NewStatsRefreshAdapter(redisQueue)

	// Initialize services
	partnerService := network.NewPartnerService(db)
	partnerService.SetStatsRefresher(statsRefresher)
	statsService := network.NewStatsService(db)

	ruleService := commission.NewRuleService(db)
	ledgerService := commission.NewLedgerService(db)
	engine := commission.NewEngine(db, cfg.Commission.MaxLevels)
	engine.SetStatsRefresher(statsRefresher)
	payoutService := commission.NewPayoutService(db, commission.NewLedgerVolumeProvider(db))
	simulator := commission.NewSimulator(db, cfg.Commission.MaxLevels)

	// Register job handlers and start the worker
	jobs.RegisterStatsRefreshJobHandlers(redisQueue, statsService)
	redisQueue.StartWorker(ctx)

	// Schedule periodic maintenance jobs
	scheduler := jobs.StartScheduler(statsService, ledgerService)

	// Initialize handlers
	partnerHandler := handlers.NewPartnerHandler(partnerService, statsService)
	commissionHandler := handlers.NewCommissionHandler(engine, ruleService, ledgerService, simulator)
	payoutHandler := handlers.NewPayoutHandler(payoutService)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	rateLimiter := middleware.NewRateLimiter(20, 40)

	// Setup routes
	routes.RegisterNetworkRoutes(router, partnerHandler, rateLimiter)
	routes.RegisterCommissionRoutes(router, commissionHandler, rateLimiter)
	routes.RegisterPayoutRoutes(router, payoutHandler, rateLimiter)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	srv := startServer(router, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	scheduler.Stop()
	redisQueue.Stop()
	rateLimiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, port string) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", port)
	return srv
}
