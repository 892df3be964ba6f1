package app

import (
	"database/sql"
	"fmt"
	"log"

	"leadflow/internal/config"
	"leadflow/internal/handlers"
	"leadflow/internal/middleware"
	"leadflow/internal/pdf"
	"leadflow/internal/repositories"
	"leadflow/internal/routes"
	"leadflow/internal/services"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "leadflow/docs"
)

func Run() {
	cfg := config.LoadConfig()
	middleware.SetJWTKey(cfg.Auth.JWTSecret)

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("db connect: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("db close: %v", err)
		}
	}()

	// === Repos ===
	tenantRepo := repositories.NewTenantRepository(db)
	userRepo := repositories.NewUserRepository(db)
	stageRepo := repositories.NewStageRepository(db)
	leadRepo := repositories.NewLeadRepository(db)
	dealRepo := repositories.NewDealRepository(db)
	rrRepo := repositories.NewRoundRobinRepository(db)
	statsRepo := repositories.NewStatsRepository(db)

	// === Services ===
	authService := services.NewAuthService()
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	var telegramService *services.TelegramService
	if cfg.Telegram.BotToken != "" {
		telegramService, err = services.NewTelegramService(cfg.Telegram.BotToken)
		if err != nil {
			log.Printf("[app] telegram disabled: %v", err)
		}
	}
	notifier := services.NewNotificationService(userRepo, emailService, telegramService)

	stageService := services.NewStageService(stageRepo)
	userService := services.NewUserService(userRepo, tenantRepo, stageService, emailService, authService)
	assignmentService := services.NewAssignmentService(rrRepo, userRepo)
	leadService := services.NewLeadService(leadRepo, dealRepo, stageService, assignmentService, notifier)
	dealService := services.NewDealService(dealRepo, stageService)
	conversionService := services.NewConversionService(statsRepo)

	pdfGen := pdf.NewReportGenerator(cfg.Files.RootDir)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService, authService, userRepo)
	userHandler := handlers.NewUserHandler(userService)
	leadHandler := handlers.NewLeadHandler(leadService)
	dealHandler := handlers.NewDealHandler(dealService)
	stageHandler := handlers.NewStageHandler(stageService)
	settingsHandler := handlers.NewSettingsHandler(assignmentService)
	reportHandler := handlers.NewReportHandler(conversionService, leadRepo, tenantRepo, pdfGen)

	// === Gin ===
	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		authHandler,
		userHandler,
		leadHandler,
		dealHandler,
		stageHandler,
		settingsHandler,
		reportHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("server: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
