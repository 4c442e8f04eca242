package main

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"

	"volunteerhub/config"
	_ "volunteerhub/docs"
	"volunteerhub/internal/adapters/auth"
	"volunteerhub/internal/adapters/notify"
	httpdelivery "volunteerhub/internal/delivery/http"
	"volunteerhub/internal/delivery/http/controllers"
	"volunteerhub/internal/delivery/http/middleware"
	"volunteerhub/internal/repository/postgres"
	"volunteerhub/internal/services"
)

const serviceTimeout = 5 * time.Second

// @title VolunteerHub API
// @version 1.0
// @description Capacity and lifecycle engine for volunteer opportunities.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := config.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}

	opportunityRepo := postgres.NewOpportunityRepository(db)
	assignmentRepo := postgres.NewAssignmentRepository(db)
	feedbackRepo := postgres.NewFeedbackRepository(db)
	txManager := postgres.NewTxManager(db)

	hub := notify.NewHub(logger)

	opportunityService := services.NewOpportunityService(opportunityRepo, txManager, hub, serviceTimeout)
	assignmentService := services.NewAssignmentService(opportunityRepo, assignmentRepo, txManager, hub, serviceTimeout)
	ledgerService := services.NewLedgerService(opportunityRepo, assignmentRepo, serviceTimeout)
	feedbackService := services.NewFeedbackService(opportunityRepo, assignmentRepo, feedbackRepo, serviceTimeout)

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	opportunityController := controllers.NewOpportunityController(logger, opportunityService, ledgerService)
	assignmentController := controllers.NewAssignmentController(logger, assignmentService)
	feedbackController := controllers.NewFeedbackController(logger, feedbackService)

	mux := httpdelivery.NewRouter(logger, verifier, opportunityController, assignmentController, feedbackController, hub.ServeWS)

	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Environment)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
