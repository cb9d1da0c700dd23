package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"portfolio-analytics-api/internal/analytics"
	"portfolio-analytics-api/internal/calculator"
	"portfolio-analytics-api/internal/clients"
	"portfolio-analytics-api/internal/config"
	"portfolio-analytics-api/internal/controllers"
	"portfolio-analytics-api/internal/middleware"
	"portfolio-analytics-api/internal/messaging"
	mongorepo "portfolio-analytics-api/internal/repositories/mongo"
	"portfolio-analytics-api/internal/scheduler"
	"portfolio-analytics-api/internal/services"
	"portfolio-analytics-api/pkg/cache"
	"portfolio-analytics-api/pkg/database"
	"portfolio-analytics-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logrus.Fatal("Invalid configuration: ", err)
	}

	// Initialize logger
	logger.Init(cfg.Logger)
	log := logrus.WithField("service", "portfolio-analytics-api")

	log.Info("Starting Portfolio Analytics API service...")

	// Initialize database connection
	db, err := database.NewMongoDB(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}
	defer db.Disconnect()

	// Initialize Redis cache
	cacheClient, err := cache.NewRedisClient(cfg.Cache)
	if err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	defer cacheClient.Close()

	// Initialize repositories
	snapshotRepo := mongorepo.NewSnapshotRepository(db.Database())

	// Initialize external clients
	brokerClient := clients.NewBrokerClient(cfg.Broker)

	// Initialize calculators
	riskCalc := calculator.NewRiskCalculator(calculator.RiskConfig{
		PeriodsPerYear:      cfg.Analytics.PeriodsPerYear,
		RiskFreeRate:        decimal.NewFromFloat(cfg.Analytics.RiskFreeRate),
		MinBetaObservations: cfg.Analytics.MinBetaObservations,
	})
	diversificationCalc := calculator.NewDiversificationCalculator(calculator.DiversificationConfig{
		SectorWeight:       cfg.Analytics.SectorWeight,
		IndustryWeight:     cfg.Analytics.IndustryWeight,
		GeographyWeight:    cfg.Analytics.GeographyWeight,
		AssetTypeWeight:    cfg.Analytics.AssetTypeWeight,
		CountWeight:        cfg.Analytics.CountWeight,
		SectorReference:    8,
		IndustryReference:  10,
		GeographyReference: 5,
		AssetTypeReference: 4,
		PositionReference:  cfg.Analytics.PositionReference,
		MediumHHIThreshold: cfg.Analytics.MediumHHIThreshold,
		HighHHIThreshold:   cfg.Analytics.HighHHIThreshold,
	})
	dividendCalc := calculator.NewDividendCalculator()

	analyzer := analytics.NewPortfolioAnalyzer(
		calculator.NewAllocationCalculator(),
		diversificationCalc,
		calculator.NewDriftCalculator(nil),
		riskCalc,
		calculator.NewPieCalculator(riskCalc),
		dividendCalc,
	)

	// Initialize services
	analyticsService := services.NewAnalyticsService(
		analyzer,
		riskCalc,
		dividendCalc,
		diversificationCalc,
		brokerClient,
		cacheClient,
		snapshotRepo,
	)

	// Initialize controllers
	analyticsController := controllers.NewAnalyticsController(logrus.StandardLogger(), analyticsService)
	healthController := controllers.NewHealthController(db, cacheClient)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Initialize RabbitMQ consumer
	var portfolioConsumer *messaging.PortfolioConsumer
	if cfg.RabbitMQ.Enabled {
		portfolioConsumer, err = messaging.NewPortfolioConsumer(cfg.RabbitMQ, cacheClient, logrus.StandardLogger())
		if err != nil {
			log.Error("Failed to initialize RabbitMQ consumer: ", err)
		} else if err := portfolioConsumer.Start(rootCtx); err != nil {
			log.Error("Failed to start RabbitMQ consumer: ", err)
		}
	}

	// Initialize snapshot scheduler
	snapshotScheduler, err := scheduler.NewScheduler(cfg.Scheduler, brokerClient, analyticsService, logrus.StandardLogger())
	if err != nil {
		log.Fatal("Failed to initialize scheduler: ", err)
	}
	if err := snapshotScheduler.Start(rootCtx); err != nil {
		log.Fatal("Failed to start scheduler: ", err)
	}

	// Setup HTTP server
	router := setupRouter(cfg, analyticsController, healthController)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: ", err)
	}

	if portfolioConsumer != nil {
		portfolioConsumer.Close()
	}
	snapshotScheduler.Stop()

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config,
	analyticsController *controllers.AnalyticsController,
	healthController *controllers.HealthController) *gin.Engine {

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics())

	// Health and metrics endpoints
	healthController.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api")
	{
		analyticsGroup := api.Group("/analytics")
		analyticsGroup.Use(middleware.Auth(cfg.Auth))
		analyticsController.RegisterRoutes(analyticsGroup)
	}

	return router
}
